package bundle

import (
	"context"
	"encoding/json"
	"os"

	"github.com/bookernath/stencil-cli/internal/linker"
	"github.com/bookernath/stencil-cli/internal/output"
	"github.com/bookernath/stencil-cli/internal/resolver"
)

// entryScriptName is the emitted edge entry script.
const entryScriptName = "theme.edge.js"

// optionalAssetDirs are the theme asset categories copied into the bundle.
// Categories that do not exist in the theme are skipped, mirroring the
// resolver's policy for missing optional external libraries.
var optionalAssetDirs = []string{"assets", "meta"}

// buildEdge compiles the partial set ahead of time, statically links the
// entry script, copies static assets, and emits the dependency and
// deployment descriptors.
func (b *Builder) buildEdge(ctx context.Context, opts Options, name string, partials resolver.PartialSet, translations map[string]json.RawMessage, rawConfig, schema []byte) (*Manifest, error) {
	manifest := &Manifest{}

	depPath, err := b.writeDependencyDescriptor(opts, name)
	if err != nil {
		return nil, err
	}
	manifest.DependencyDescriptor = depPath

	// The runtime dependencies are inlined by the linker, so "installing"
	// them is verifying the descriptor round-trips; nothing is fetched.
	output.Debug("runtime dependencies declared", "descriptor", depPath)

	artifact, err := b.compileArtifact(ctx, partials)
	if err != nil {
		return nil, err
	}

	translationsJSON, err := marshalTranslations(translations)
	if err != nil {
		return nil, err
	}

	script, err := linker.NewLinker(artifact).Link(linker.DefaultEntry, linker.Substitutions{
		Translations: translationsJSON,
		Schema:       schema,
		Config:       rawConfig,
		APIURL:       opts.APIURL,
	}, artifact)
	if err != nil {
		return nil, err
	}

	entryPath := destPath(opts, entryScriptName)
	if err := os.WriteFile(entryPath, []byte(script), 0o644); err != nil {
		return nil, err
	}
	manifest.ArtifactPath = entryPath

	assetDir, err := b.copyAssets(opts)
	if err != nil {
		return nil, err
	}
	manifest.AssetDir = assetDir

	descPath, err := writeDeploymentDescriptor(opts, name)
	if err != nil {
		return nil, err
	}
	manifest.DeploymentDescriptor = descPath

	return manifest, nil
}

// writeDependencyDescriptor emits the name/version pairs for the two runtime
// packages the edge artifact needs at deploy time.
func (b *Builder) writeDependencyDescriptor(opts Options, name string) (string, error) {
	descriptor := struct {
		Name         string            `json:"name"`
		Private      bool              `json:"private"`
		Dependencies map[string]string `json:"dependencies"`
	}{
		Name:    name,
		Private: true,
		Dependencies: map[string]string{
			"stencil-edge-runtime":  "^2.1.0",
			"stencil-paper-helpers": "^1.4.0",
		},
	}
	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return "", err
	}
	path := destPath(opts, "package.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
