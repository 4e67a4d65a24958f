// Package bundle orchestrates theme builds. A build validates the theme,
// assembles templates and translations, fetches configuration, and then
// produces one of two artifacts: a portable archive for the classic
// server-side renderer, or a statically-linked edge bundle.
package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bookernath/stencil-cli/internal/compiler"
	"github.com/bookernath/stencil-cli/internal/output"
	"github.com/bookernath/stencil-cli/internal/resolver"
	"github.com/bookernath/stencil-cli/internal/theme"
)

// Target selects the build strategy. The two targets are mutually exclusive.
type Target string

const (
	// TargetArchive produces a portable zip for the classic renderer.
	TargetArchive Target = "archive"

	// TargetEdgeBundle produces a statically-linked script plus deployment
	// descriptor for the edge runtime.
	TargetEdgeBundle Target = "edge"
)

// ParseTarget validates a target name from a flag.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetArchive, TargetEdgeBundle:
		return Target(s), nil
	default:
		return "", fmt.Errorf("unknown build target %q (valid: archive, edge)", s)
	}
}

// Options configures a build.
type Options struct {
	// Dest is the output directory. Created if absent.
	Dest string

	// Name overrides the artifact base name derived from the theme.
	Name string

	// Target picks the build strategy.
	Target Target

	// APIURL is the upstream API base URL baked into the edge artifact.
	APIURL string
}

// Manifest is the emitted artifact set for a build. Write-once: populated by
// the stages and returned alongside the artifact path.
type Manifest struct {
	// ArtifactPath is the primary artifact: the zip (archive target) or the
	// entry script (edge target).
	ArtifactPath string

	// AssetDir is the copied static-asset tree (edge target only).
	AssetDir string

	// DependencyDescriptor is the name/version descriptor path (edge only).
	DependencyDescriptor string

	// DeploymentDescriptor is the edge runtime descriptor path (edge only).
	DeploymentDescriptor string
}

// Builder runs the build stage machine. Stage order is fixed; any stage
// failure aborts the rest and surfaces the originating error unchanged.
type Builder struct {
	Theme     *theme.Theme
	Validator theme.Validator
	Config    theme.ConfigSource
	Loader    theme.SourceLoader
}

// NewBuilder wires the default collaborators for a loaded theme.
func NewBuilder(t *theme.Theme) *Builder {
	return &Builder{
		Theme:     t,
		Validator: theme.NewValidator(),
		Config:    theme.NewConfigSource(t.Root),
		Loader:    theme.NewSourceLoader(),
	}
}

// Build produces the artifact for the selected target and returns its path.
func (b *Builder) Build(ctx context.Context, opts Options) (*Manifest, error) {
	// Validation is always first-checked and always fatal.
	if err := b.Validator.Validate(b.Theme); err != nil {
		return nil, err
	}

	res := resolver.New(b.Theme.Root)
	partials, err := res.Resolve()
	if err != nil {
		return nil, err
	}
	output.Debug("resolved partials", "count", len(partials))

	translations, err := theme.Translations(b.Theme.Root)
	if err != nil {
		return nil, err
	}

	rawConfig, err := b.Config.GetRawConfig()
	if err != nil {
		return nil, err
	}
	schema, err := b.Config.GetSchema()
	if err != nil {
		return nil, err
	}

	// Output directory creation is idempotent.
	if err := os.MkdirAll(opts.Dest, 0o755); err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = b.Theme.ArtifactName()
	}

	switch opts.Target {
	case TargetEdgeBundle:
		return b.buildEdge(ctx, opts, name, partials, translations, rawConfig, schema)
	default:
		return b.buildArchive(opts, name, partials, translations, rawConfig, schema)
	}
}

// compileArtifact runs the ahead-of-time compiler over the resolved set.
func (b *Builder) compileArtifact(ctx context.Context, partials resolver.PartialSet) (*compiler.TemplateArtifact, error) {
	c := &compiler.Compiler{
		ThemeRoot: b.Theme.Root,
		Loader:    b.Loader,
	}
	return c.Compile(ctx, partials)
}

// marshalTranslations serializes the assembled translation table.
func marshalTranslations(table map[string]json.RawMessage) ([]byte, error) {
	return json.Marshal(table)
}

// destPath joins the destination with a file name.
func destPath(opts Options, parts ...string) string {
	return filepath.Join(append([]string{opts.Dest}, parts...)...)
}
