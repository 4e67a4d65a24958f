// Package deploy drives the remote deployment workflow: upload the bundle,
// clear theme-slot quota when needed, poll the processing job to completion,
// and optionally activate a variation. The workflow is a sequential pipeline
// over a Session; each step returns an augmented session or a named error
// that aborts the whole run.
package deploy

import "github.com/bookernath/stencil-cli/internal/api"

// Session is the workflow record threaded through every step. Steps mutate
// it additively, never destructively; no two steps touch it concurrently.
type Session struct {
	// StoreURL and AccessToken come from the local deployment config.
	StoreURL    string
	AccessToken string

	// StoreHash is the store identity discovered from StoreURL.
	StoreHash string

	// BundlePath is the artifact the workflow uploads.
	BundlePath string

	// JobID is the processing job assigned by the upload.
	JobID string

	// ThemeLimitReached records the "theme slot full" condition from upload.
	ThemeLimitReached bool

	// Themes is the store's existing theme list.
	Themes []api.ThemeRecord

	// DeleteIDs are the themes selected for deletion by the quota branch.
	DeleteIDs []string

	// ThemeID is the uploaded theme, known once the job completes.
	ThemeID string

	// VariationID is the variation chosen for activation.
	VariationID string
}

func (s *Session) creds() api.Credentials {
	return api.Credentials{AccessToken: s.AccessToken, StoreHash: s.StoreHash}
}
