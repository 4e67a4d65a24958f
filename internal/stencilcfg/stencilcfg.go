// Package stencilcfg loads the local deployment configuration: the store URL
// and access credential the push workflow operates with.
package stencilcfg

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for stencil configuration.
const envPrefix = "STENCIL"

// File names looked up in the theme directory. Secrets are kept apart from
// the shareable config so the credential never lands in version control.
const (
	configFile  = "config.stencil.json"
	secretsFile = "secrets.stencil.json"
)

// Config is the merged deployment configuration.
type Config struct {
	// NormalStoreURL is the storefront URL the store hash is discovered from.
	NormalStoreURL string `mapstructure:"normalStoreUrl"`

	// AccessToken authenticates every theme API call.
	AccessToken string `mapstructure:"accessToken"`

	// APIHost overrides the theme API base URL; empty selects production.
	APIHost string `mapstructure:"apiHost"`
}

// ConfigReadError indicates the deployment config is missing or unreadable.
type ConfigReadError struct {
	Path string
	Err  error
}

func (e *ConfigReadError) Error() string {
	return fmt.Sprintf("reading stencil config %s: %v", e.Path, e.Err)
}

func (e *ConfigReadError) Unwrap() error { return e.Err }

// Loader loads and merges configuration from the theme directory and the
// environment. Environment variables take precedence over file values.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("normalStoreUrl", "STENCIL_STORE_URL")
	_ = v.BindEnv("accessToken", "STENCIL_ACCESS_TOKEN")
	_ = v.BindEnv("apiHost", "STENCIL_API_HOST")

	return &Loader{v: v}
}

// Load reads config.stencil.json and secrets.stencil.json from dir and
// merges them, secrets last. A missing config file is a ConfigReadError;
// missing secrets are tolerated when the token arrives via environment.
func (l *Loader) Load(dir string) (*Config, error) {
	l.v.SetConfigType("json")

	configPath := filepath.Join(dir, configFile)
	l.v.SetConfigFile(configPath)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, &ConfigReadError{Path: configPath, Err: err}
	}

	secretsPath := filepath.Join(dir, secretsFile)
	l.v.SetConfigFile(secretsPath)
	if err := l.v.MergeInConfig(); err != nil && l.v.GetString("accessToken") == "" {
		return nil, &ConfigReadError{Path: secretsPath, Err: err}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigReadError{Path: configPath, Err: err}
	}
	if cfg.NormalStoreURL == "" {
		return nil, &ConfigReadError{Path: configPath, Err: fmt.Errorf("normalStoreUrl is not set")}
	}
	if cfg.AccessToken == "" {
		return nil, &ConfigReadError{Path: secretsPath, Err: fmt.Errorf("accessToken is not set")}
	}
	return &cfg, nil
}
