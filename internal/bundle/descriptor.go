package bundle

import (
	"os"

	"github.com/BurntSushi/toml"
)

// deploymentDescriptor tells the edge runtime how to run the emitted script.
type deploymentDescriptor struct {
	Name              string              `toml:"name"`
	Main              string              `toml:"main"`
	CompatibilityDate string              `toml:"compatibility_date"`
	Assets            assetsDecl          `toml:"assets"`
	Vars              map[string]string   `toml:"vars"`
	Observability     observabilityConfig `toml:"observability"`
}

type assetsDecl struct {
	Directory string `toml:"directory"`
}

type observabilityConfig struct {
	Enabled          bool    `toml:"enabled"`
	HeadSamplingRate float64 `toml:"head_sampling_rate"`
}

// compatibilityDate is the runtime compatibility marker stamped into every
// deployment descriptor. Bump deliberately; the edge runtime gates behavior
// on it.
const compatibilityDate = "2025-11-01"

// writeDeploymentDescriptor emits the edge runtime descriptor next to the
// entry script.
func writeDeploymentDescriptor(opts Options, name string) (string, error) {
	descriptor := deploymentDescriptor{
		Name:              name,
		Main:              entryScriptName,
		CompatibilityDate: compatibilityDate,
		Assets:            assetsDecl{Directory: "./static"},
		Vars:              map[string]string{"STENCIL_API_URL": opts.APIURL},
		Observability: observabilityConfig{
			Enabled:          true,
			HeadSamplingRate: 0.05,
		},
	}

	data, err := toml.Marshal(descriptor)
	if err != nil {
		return "", err
	}
	path := destPath(opts, "deploy.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
