package deploy

import (
	"fmt"
	"strings"
)

// Each workflow step fails with a distinct error type so callers can
// distinguish conditions without string-matching messages.

// StoreHashReadError indicates store identity discovery failed or returned
// an empty identity.
type StoreHashReadError struct {
	StoreURL string
	Err      error
}

func (e *StoreHashReadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store lookup for %s returned no store hash", e.StoreURL)
	}
	return fmt.Sprintf("reading store hash for %s: %v", e.StoreURL, e.Err)
}

func (e *StoreHashReadError) Unwrap() error { return e.Err }

// BundleInitError indicates the build artifact could not be produced.
type BundleInitError struct {
	Err error
}

func (e *BundleInitError) Error() string {
	return fmt.Sprintf("initializing bundle: %v", e.Err)
}

func (e *BundleInitError) Unwrap() error { return e.Err }

// ThemeUploadError indicates the artifact upload was rejected.
type ThemeUploadError struct {
	Err error
}

func (e *ThemeUploadError) Error() string {
	return fmt.Sprintf("uploading theme: %v", e.Err)
}

func (e *ThemeUploadError) Unwrap() error { return e.Err }

// ThemeDeletionError indicates a quota-branch deletion failed.
type ThemeDeletionError struct {
	ThemeID string
	Err     error
}

func (e *ThemeDeletionError) Error() string {
	return fmt.Sprintf("deleting theme %s: %v", e.ThemeID, e.Err)
}

func (e *ThemeDeletionError) Unwrap() error { return e.Err }

// InvalidVariationError indicates the requested variation name matches none
// of the theme's variations. The message enumerates the valid names.
type InvalidVariationError struct {
	Name  string
	Valid []string
}

func (e *InvalidVariationError) Error() string {
	return fmt.Sprintf("variation %q not found; valid variations: %s", e.Name, strings.Join(e.Valid, ", "))
}

// VariationActivationTimeoutError indicates activation timed out on every
// allowed attempt.
type VariationActivationTimeoutError struct {
	Attempts int
	Err      error
}

func (e *VariationActivationTimeoutError) Error() string {
	return fmt.Sprintf("activating variation timed out after %d attempts: %v", e.Attempts, e.Err)
}

func (e *VariationActivationTimeoutError) Unwrap() error { return e.Err }
