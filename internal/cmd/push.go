package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookernath/stencil-cli/internal/api"
	"github.com/bookernath/stencil-cli/internal/bundle"
	"github.com/bookernath/stencil-cli/internal/deploy"
	"github.com/bookernath/stencil-cli/internal/output"
	"github.com/bookernath/stencil-cli/internal/stencilcfg"
)

// pushOptions holds the flags for the push command.
type pushOptions struct {
	dir          string
	dest         string
	file         string
	target       string
	apiHost      string
	apiURL       string
	timeout      time.Duration
	deleteOldest bool
	activate     bool
	variation    string
}

// NewPushCmd creates the push command.
func NewPushCmd() *cobra.Command {
	opts := &pushOptions{}

	c := &cobra.Command{
		Use:   "push",
		Short: "Upload the theme bundle and walk it through deployment",
		Long: `Bundles the theme (or reuses an existing bundle), uploads it, clears the
theme-slot quota when necessary, waits for remote processing to finish, and
optionally activates a variation.`,
		RunE: func(c *cobra.Command, _ []string) error {
			return runPush(c.Context(), opts)
		},
	}

	c.Flags().StringVar(&opts.dir, "dir", ".", "Theme directory")
	c.Flags().StringVarP(&opts.dest, "dest", "d", "dist", "Destination directory for build output")
	c.Flags().StringVarP(&opts.file, "file", "f", "", "Existing bundle to upload instead of building")
	c.Flags().StringVarP(&opts.target, "target", "t", string(bundle.TargetArchive), "Build target: archive or edge")
	c.Flags().StringVar(&opts.apiHost, "apiHost", "", "Theme API host override")
	c.Flags().StringVar(&opts.apiURL, "apiUrl", "", "Upstream API base URL baked into the edge artifact")
	c.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout for remote calls (0 = none)")
	c.Flags().BoolVar(&opts.deleteOldest, "delete-oldest", false, "Delete the oldest private inactive theme when the slot quota is hit")
	c.Flags().BoolVarP(&opts.activate, "activate", "a", false, "Apply the theme after upload without prompting")
	c.Flags().StringVar(&opts.variation, "variation", "", "Variation name to activate (exact, case-sensitive)")

	return c
}

func runPush(ctx context.Context, opts *pushOptions) error {
	workflow := &deploy.Workflow{
		API:          api.NewClient(resolveAPIHost(opts.apiHost, opts.dir), opts.timeout),
		Prompter:     deploy.NewPrompter(),
		Clock:        deploy.NewClock(),
		ConfigLoader: stencilcfg.NewLoader(),
		BuildArtifact: func(ctx context.Context) (string, error) {
			manifest, err := buildBundle(ctx, &bundleOptions{
				dir:    opts.dir,
				dest:   opts.dest,
				target: opts.target,
				apiURL: opts.apiURL,
			})
			if err != nil {
				return "", err
			}
			return manifest.ArtifactPath, nil
		},
		Progress: func(percent int) {
			output.Println(output.FormatProgress(percent))
		},
	}

	_, err := workflow.Run(ctx, deploy.Options{
		ThemeDir:      opts.dir,
		BundlePath:    opts.file,
		DeleteOldest:  opts.deleteOldest,
		Activate:      opts.activate,
		VariationName: opts.variation,
	})
	if err != nil {
		return classifyPushError(err)
	}
	return nil
}

// resolveAPIHost picks the theme API host: the flag wins, then the deployment
// config's apiHost, then the production default (selected by the client for an
// empty host). Config read failures are not surfaced here; the workflow's own
// config step reports them.
func resolveAPIHost(flagHost, themeDir string) string {
	if flagHost != "" {
		return flagHost
	}
	cfg, err := stencilcfg.NewLoader().Load(themeDir)
	if err != nil {
		return ""
	}
	return cfg.APIHost
}

// classifyPushError maps workflow failures onto the network sentinel unless
// they originated in the build, which keeps its own classification.
func classifyPushError(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	var bundleErr *deploy.BundleInitError
	if errors.As(err, &bundleErr) {
		return err
	}
	var cfgErr *stencilcfg.ConfigReadError
	if errors.As(err, &cfgErr) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
