package deploy

import (
	"context"
	"errors"
	"time"

	"github.com/bookernath/stencil-cli/internal/api"
	"github.com/bookernath/stencil-cli/internal/output"
	"github.com/bookernath/stencil-cli/internal/stencilcfg"
)

// pollInterval is the fixed wait between job status attempts.
const pollInterval = time.Second

// activationAttempts is the total number of activation tries before a
// timeout-classified failure is surfaced.
const activationAttempts = 3

// activationRetryInterval is the wait between activation attempts.
const activationRetryInterval = time.Second

// apiClient is the slice of the theme API the workflow consumes. *api.Client
// satisfies it; tests substitute a fake.
type apiClient interface {
	GetStoreHash(ctx context.Context, accessToken, storeURL string) (string, error)
	GetThemes(ctx context.Context, creds api.Credentials) ([]api.ThemeRecord, error)
	PostTheme(ctx context.Context, creds api.Credentials, bundlePath string) (*api.UploadResult, error)
	GetJob(ctx context.Context, creds api.Credentials, jobID string) (*api.JobStatus, error)
	GetVariationsByThemeID(ctx context.Context, creds api.Credentials, themeID string) ([]api.Variation, error)
	ActivateThemeByVariationID(ctx context.Context, creds api.Credentials, variationID string) error
	DeleteThemeByID(ctx context.Context, creds api.Credentials, themeID string) error
}

// Options carries the caller intent from flags.
type Options struct {
	// ThemeDir is the theme checkout the deployment config is read from.
	ThemeDir string

	// BundlePath, when set, reuses an existing artifact instead of building.
	BundlePath string

	// DeleteOldest pre-selects deleting the single oldest private,
	// non-active theme when the slot quota is hit.
	DeleteOldest bool

	// Activate requests applying the theme after upload without prompting.
	Activate bool

	// VariationName selects a variation by exact, case-sensitive name.
	VariationName string
}

// Workflow runs the upload/poll/activate pipeline.
type Workflow struct {
	API      apiClient
	Prompter Prompter
	Clock    Clock

	// ConfigLoader reads the local deployment config.
	ConfigLoader *stencilcfg.Loader

	// BuildArtifact produces the bundle when Options.BundlePath is empty.
	BuildArtifact func(ctx context.Context) (string, error)

	// Progress receives the monotonically increasing job percentage.
	Progress func(percent int)
}

// Run executes every step in order. Each step returns a fully-augmented
// session or a named error that aborts the workflow.
func (w *Workflow) Run(ctx context.Context, opts Options) (*Session, error) {
	session := &Session{}

	steps := []func(context.Context, *Session, Options) error{
		w.readConfig,
		w.resolveStoreHash,
		w.listThemes,
		w.initBundle,
		w.uploadWithQuotaRetry,
		w.waitForJob,
		w.maybeActivate,
	}
	for _, step := range steps {
		if err := step(ctx, session, opts); err != nil {
			return nil, err
		}
	}

	output.Println(output.FormatCheckmark("Theme deployed"))
	return session, nil
}

// readConfig augments the session with the store URL and credential from the
// local deployment config.
func (w *Workflow) readConfig(_ context.Context, s *Session, opts Options) error {
	cfg, err := w.ConfigLoader.Load(opts.ThemeDir)
	if err != nil {
		return err
	}
	s.StoreURL = cfg.NormalStoreURL
	s.AccessToken = cfg.AccessToken
	return nil
}

// resolveStoreHash discovers the store identity from the store URL.
func (w *Workflow) resolveStoreHash(ctx context.Context, s *Session, _ Options) error {
	hash, err := w.API.GetStoreHash(ctx, s.AccessToken, s.StoreURL)
	if err != nil {
		return &StoreHashReadError{StoreURL: s.StoreURL, Err: err}
	}
	if hash == "" {
		return &StoreHashReadError{StoreURL: s.StoreURL}
	}
	s.StoreHash = hash
	return nil
}

// listThemes loads the store's existing themes for the quota branch.
func (w *Workflow) listThemes(ctx context.Context, s *Session, _ Options) error {
	themes, err := w.API.GetThemes(ctx, s.creds())
	if err != nil {
		return err
	}
	s.Themes = themes
	return nil
}

// initBundle produces the artifact, or reuses one if already supplied.
func (w *Workflow) initBundle(ctx context.Context, s *Session, opts Options) error {
	if opts.BundlePath != "" {
		s.BundlePath = opts.BundlePath
		return nil
	}
	path, err := w.BuildArtifact(ctx)
	if err != nil {
		return &BundleInitError{Err: err}
	}
	s.BundlePath = path
	return nil
}

// uploadWithQuotaRetry uploads the artifact. When the store's theme slots
// are full, the quota branch deletes themes and then repeats the entire
// upload — a retry-by-resubmission, not a resume.
func (w *Workflow) uploadWithQuotaRetry(ctx context.Context, s *Session, opts Options) error {
	if err := w.upload(ctx, s); err != nil {
		return err
	}
	if !s.ThemeLimitReached {
		return nil
	}

	output.Println(output.StyleWarn.Render("The store has reached its theme limit."))
	if err := w.clearQuota(s, opts); err != nil {
		return err
	}
	for _, id := range s.DeleteIDs {
		if err := w.API.DeleteThemeByID(ctx, s.creds(), id); err != nil {
			return &ThemeDeletionError{ThemeID: id, Err: err}
		}
		output.Debug("deleted theme", "uuid", id)
	}

	s.ThemeLimitReached = false
	if err := w.upload(ctx, s); err != nil {
		return err
	}
	if s.ThemeLimitReached {
		return &ThemeUploadError{Err: errors.New("theme limit still reached after deletion")}
	}
	return nil
}

func (w *Workflow) upload(ctx context.Context, s *Session) error {
	result, err := w.API.PostTheme(ctx, s.creds(), s.BundlePath)
	if err != nil {
		return &ThemeUploadError{Err: err}
	}
	s.JobID = result.JobID
	s.ThemeLimitReached = result.ThemeLimitReached
	return nil
}

// clearQuota decides which themes to delete: the single oldest deletable
// theme when the caller pre-selected that, otherwise an interactive
// multi-select requiring at least one pick.
func (w *Workflow) clearQuota(s *Session, opts Options) error {
	if opts.DeleteOldest {
		oldest, ok := OldestDeletableTheme(s.Themes)
		if !ok {
			return &ThemeUploadError{Err: errors.New("theme limit reached and no private, non-active theme is deletable")}
		}
		s.DeleteIDs = append(s.DeleteIDs, oldest.UUID)
		return nil
	}

	deletable := deletableThemes(s.Themes)
	if len(deletable) == 0 {
		return &ThemeUploadError{Err: errors.New("theme limit reached and no private, non-active theme is deletable")}
	}
	selected, err := w.Prompter.SelectThemesForDeletion(deletable)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return &ThemeDeletionError{Err: errors.New("no themes selected for deletion")}
	}
	s.DeleteIDs = append(s.DeleteIDs, selected...)
	return nil
}

// OldestDeletableTheme returns the private, non-active theme with the
// minimum UpdatedAt. Ties break to the first encountered in list order.
func OldestDeletableTheme(themes []api.ThemeRecord) (api.ThemeRecord, bool) {
	var oldest api.ThemeRecord
	found := false
	for _, t := range themes {
		if !t.IsPrivate || t.IsActive {
			continue
		}
		if !found || t.UpdatedAt.Before(oldest.UpdatedAt) {
			oldest = t
			found = true
		}
	}
	return oldest, found
}

func deletableThemes(themes []api.ThemeRecord) []api.ThemeRecord {
	var out []api.ThemeRecord
	for _, t := range themes {
		if t.IsPrivate && !t.IsActive {
			out = append(out, t)
		}
	}
	return out
}

// waitForJob polls the processing job at a fixed interval until it is no
// longer pending. A pending response is a retry signal, not an error; the
// loop has no attempt bound and no overall timeout — it ends only when the
// remote side completes (or the context is cancelled).
func (w *Workflow) waitForJob(ctx context.Context, s *Session, _ Options) error {
	last := 0
	report := func(percent int) {
		// Progress is monotonic: a stale lower reading never rolls the
		// display backwards.
		if percent < last {
			percent = last
		}
		last = percent
		if w.Progress != nil {
			w.Progress(percent)
		}
	}

	for {
		job, err := w.API.GetJob(ctx, s.creds(), s.JobID)
		if err != nil {
			return err
		}
		if !job.Pending {
			report(100)
			s.ThemeID = job.Result.ThemeID
			return nil
		}
		report(job.PercentComplete)
		if err := w.Clock.Sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
}

// maybeActivate applies the uploaded theme when requested, resolving the
// variation per the selection rules and retrying timeout-classified
// activation failures.
func (w *Workflow) maybeActivate(ctx context.Context, s *Session, opts Options) error {
	apply := opts.Activate || opts.VariationName != ""
	if !apply {
		confirmed, err := w.Prompter.ConfirmApply()
		if err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	variations, err := w.API.GetVariationsByThemeID(ctx, s.creds(), s.ThemeID)
	if err != nil {
		return err
	}
	chosen, err := w.selectVariation(variations, opts)
	if err != nil {
		return err
	}
	s.VariationID = chosen

	return w.activate(ctx, s)
}

// selectVariation applies the selection rules: an explicit name must match
// exactly (case-sensitive); a generic activation request defaults to the
// first listed variation; otherwise the user picks interactively.
func (w *Workflow) selectVariation(variations []api.Variation, opts Options) (string, error) {
	names := make([]string, len(variations))
	byName := make(map[string]string, len(variations))
	for i, v := range variations {
		names[i] = v.Name
		if _, dup := byName[v.Name]; !dup {
			byName[v.Name] = v.UUID
		}
	}

	if opts.VariationName != "" {
		id, ok := byName[opts.VariationName]
		if !ok {
			return "", &InvalidVariationError{Name: opts.VariationName, Valid: names}
		}
		return id, nil
	}
	if opts.Activate {
		if len(variations) == 0 {
			return "", &InvalidVariationError{Name: "", Valid: nil}
		}
		return variations[0].UUID, nil
	}

	picked, err := w.Prompter.SelectVariation(names)
	if err != nil {
		return "", err
	}
	id, ok := byName[picked]
	if !ok {
		return "", &InvalidVariationError{Name: picked, Valid: names}
	}
	return id, nil
}

// activate requests activation, retrying timeout-classified failures up to
// activationAttempts total tries. Any other failure is immediately fatal.
func (w *Workflow) activate(ctx context.Context, s *Session) error {
	var lastErr error
	for attempt := 1; attempt <= activationAttempts; attempt++ {
		err := w.API.ActivateThemeByVariationID(ctx, s.creds(), s.VariationID)
		if err == nil {
			return nil
		}
		if !isTimeout(err) {
			return err
		}
		lastErr = err
		if attempt < activationAttempts {
			if sleepErr := w.Clock.Sleep(ctx, activationRetryInterval); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return &VariationActivationTimeoutError{Attempts: activationAttempts, Err: lastErr}
}

// isTimeout classifies an activation failure as retryable.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return false
}
