// Package theme models a local stencil theme and its collaborators: the
// theme configuration source, the structural validator, and the template
// source loader that inlines nested partials.
package theme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Theme is a themed storefront checked out on disk.
type Theme struct {
	// Root is the theme directory (contains config.json, templates/, lang/).
	Root string

	// Name and Version come from config.json and name build artifacts.
	Name    string
	Version string
}

// configFile is the theme configuration file name.
const configFile = "config.json"

// schemaFile is the theme settings schema file name.
const schemaFile = "schema.json"

// langDir holds per-locale translation files.
const langDir = "lang"

// Load reads the theme at root. Only the identifying fields are decoded
// here; the raw configuration bytes are served by the ConfigSource so the
// archive round-trips them byte-identically.
func Load(root string) (*Theme, error) {
	raw, err := os.ReadFile(filepath.Join(root, configFile))
	if err != nil {
		return nil, fmt.Errorf("reading theme config: %w", err)
	}
	var meta struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parsing theme config: %w", err)
	}
	return &Theme{Root: root, Name: meta.Name, Version: meta.Version}, nil
}

// ArtifactName returns the base name for build artifacts, e.g.
// "cornerstone-1.2.0".
func (t *Theme) ArtifactName() string {
	if t.Name == "" {
		return "theme"
	}
	if t.Version == "" {
		return t.Name
	}
	return t.Name + "-" + t.Version
}
