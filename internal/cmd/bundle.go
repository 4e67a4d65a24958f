package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookernath/stencil-cli/internal/bundle"
	"github.com/bookernath/stencil-cli/internal/output"
	"github.com/bookernath/stencil-cli/internal/theme"
)

// bundleOptions holds the flags for the bundle command.
type bundleOptions struct {
	dir    string
	dest   string
	name   string
	target string
	apiURL string
}

// NewBundleCmd creates the bundle command.
func NewBundleCmd() *cobra.Command {
	opts := &bundleOptions{}

	c := &cobra.Command{
		Use:   "bundle",
		Short: "Package the theme into a deployable artifact",
		Long: `Packages the theme as either a portable archive for the classic renderer
or a statically-linked bundle for the edge runtime.`,
		RunE: func(c *cobra.Command, _ []string) error {
			return runBundle(c.Context(), opts)
		},
	}

	c.Flags().StringVar(&opts.dir, "dir", ".", "Theme directory")
	c.Flags().StringVarP(&opts.dest, "dest", "d", "dist", "Destination directory for build output")
	c.Flags().StringVar(&opts.name, "name", "", "Artifact base name (default: <theme>-<version>)")
	c.Flags().StringVarP(&opts.target, "target", "t", string(bundle.TargetArchive), "Build target: archive or edge")
	c.Flags().StringVar(&opts.apiURL, "apiUrl", "", "Upstream API base URL baked into the edge artifact")

	return c
}

func runBundle(ctx context.Context, opts *bundleOptions) error {
	var manifest *bundle.Manifest
	err := output.RunWithSpinner(ctx, func() error {
		var buildErr error
		manifest, buildErr = buildBundle(ctx, opts)
		return buildErr
	}, output.WithTitle("Packaging theme..."))
	if err != nil {
		return err
	}
	output.Println(output.FormatCheckmark("Bundle written to " + output.StyleNoun.Render(manifest.ArtifactPath)))
	return nil
}

// buildBundle runs the orchestrator for the flag set; push reuses it.
func buildBundle(ctx context.Context, opts *bundleOptions) (*bundle.Manifest, error) {
	target, err := bundle.ParseTarget(opts.target)
	if err != nil {
		return nil, NewExitError(err, ExitGeneralError)
	}

	t, err := theme.Load(opts.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	manifest, err := bundle.NewBuilder(t).Build(ctx, bundle.Options{
		Dest:   opts.dest,
		Name:   opts.name,
		Target: target,
		APIURL: opts.apiURL,
	})
	if err != nil {
		return nil, classifyBuildError(err)
	}
	return manifest, nil
}

// classifyBuildError tags orchestrator failures with the matching sentinel
// while surfacing the originating error unchanged in the message chain.
func classifyBuildError(err error) error {
	var verr *theme.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return fmt.Errorf("%w: %w", ErrBuild, err)
}
