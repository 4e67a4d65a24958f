package theme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ConfigSource exposes a theme's configuration and settings schema as opaque
// data. The raw byte forms are preserved exactly as read so that archived
// copies round-trip byte-identically.
type ConfigSource interface {
	GetRawConfig() ([]byte, error)
	GetSchema() ([]byte, error)
	GetConfig() (map[string]any, error)
	ConfigExists() bool
}

// fileConfigSource reads configuration from the theme directory.
type fileConfigSource struct {
	root string
}

// NewConfigSource returns a ConfigSource over the theme's directory.
func NewConfigSource(root string) ConfigSource {
	return &fileConfigSource{root: root}
}

func (s *fileConfigSource) GetRawConfig() ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, configFile))
}

// GetSchema returns the settings schema. A theme without a schema.json gets
// an empty schema document rather than an error.
func (s *fileConfigSource) GetSchema() ([]byte, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, schemaFile))
	if os.IsNotExist(err) {
		return []byte("[]"), nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *fileConfigSource) GetConfig() (map[string]any, error) {
	raw, err := s.GetRawConfig()
	if err != nil {
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configFile, err)
	}
	return cfg, nil
}

func (s *fileConfigSource) ConfigExists() bool {
	_, err := os.Stat(filepath.Join(s.root, configFile))
	return err == nil
}

// Translations assembles every lang/*.json file into a locale -> raw table
// map. A theme without a lang directory has no translations; that is not an
// error.
func Translations(root string) (map[string]json.RawMessage, error) {
	dir := filepath.Join(root, langDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	table := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		raw, readErr := os.ReadFile(filepath.Join(dir, name))
		if readErr != nil {
			return nil, fmt.Errorf("reading translation %s: %w", name, readErr)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("translation %s is not valid JSON", name)
		}
		locale := strings.TrimSuffix(name, ".json")
		table[locale] = json.RawMessage(raw)
	}
	return table, nil
}
