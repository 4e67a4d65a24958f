// Package api is the typed client for the remote theme API.
package api

import "time"

// ThemeRecord is a remote-owned theme. Read-only from the CLI's perspective
// except for deletion requests it issues.
type ThemeRecord struct {
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	IsPrivate bool      `json:"is_private"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Variation is a named preset of a theme, selectable at activation time.
type Variation struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// JobStatus is the polled state of a remote processing job. Terminal when
// Pending is false.
type JobStatus struct {
	Pending         bool
	PercentComplete int
	Result          JobResult
}

// JobResult carries the terminal output of a completed job.
type JobResult struct {
	ThemeID string `json:"theme_id"`
}

// UploadResult is the remote response to a theme upload.
type UploadResult struct {
	JobID             string
	ThemeLimitReached bool
}

// Credentials identify the store every call operates on.
type Credentials struct {
	AccessToken string
	StoreHash   string
}
