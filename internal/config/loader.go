package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/listquery/internal/constants"
	"github.com/coral-mesh/listquery/internal/safe"
)

// Layer is a configuration source.
type Layer string

const (
	// LayerDefaults holds the built-in defaults.
	LayerDefaults Layer = "defaults"
	// LayerFile holds values from the YAML file.
	LayerFile Layer = "file"
	// LayerEnv holds values from environment variables.
	LayerEnv Layer = "env"
)

// Loader loads configuration in layers. Each layer overrides the one before:
// defaults, then the YAML file, then environment variables.
type Loader struct {
	homeDir       string
	enabledLayers map[Layer]bool
}

// NewLoader creates a loader rooted at the user's home directory. When no home
// directory exists the default path simply won't be found and defaults apply.
func NewLoader() *Loader {
	home, err := os.UserHomeDir()
	if err != nil {
		home = filepath.Join(os.TempDir(), constants.AppName)
	}
	return &Loader{
		homeDir: home,
		enabledLayers: map[Layer]bool{
			LayerDefaults: true,
			LayerFile:     true,
			LayerEnv:      true,
		},
	}
}

// DisableLayer turns off a layer.
func (l *Loader) DisableLayer(layer Layer) {
	l.enabledLayers[layer] = false
}

// ResolvePath picks the config file: the explicit path, then
// $LISTQUERY_CONFIG, then ~/.listquery/config.yaml.
func (l *Loader) ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(constants.ConfigEnvVar); p != "" {
		return p
	}
	return filepath.Join(l.homeDir, constants.DefaultDir, constants.ConfigFile)
}

// Load loads and validates the configuration. A missing file is not an error
// unless it was named explicitly.
func (l *Loader) Load(explicit string) (*Config, error) {
	cfg := &Config{}
	if l.enabledLayers[LayerDefaults] {
		cfg = DefaultConfig()
	}

	if l.enabledLayers[LayerFile] {
		path := l.ResolvePath(explicit)
		if err := loadFile(path, cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) || explicit != "" {
				return nil, err
			}
		} else {
			resolveDatasetPaths(cfg, filepath.Dir(path))
		}
	}

	if l.enabledLayers[LayerEnv] {
		if err := LoadFromEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	//nolint:gosec // G301: config directory needs standard permissions
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := safe.ReadFile(path, safe.DefaultMaxFileSize)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// resolveDatasetPaths makes relative dataset and history paths relative to
// the config file's directory.
func resolveDatasetPaths(cfg *Config, dir string) {
	for i := range cfg.Datasets {
		if p := cfg.Datasets[i].Path; p != "" && p != ":memory:" && !filepath.IsAbs(p) {
			cfg.Datasets[i].Path = filepath.Join(dir, p)
		}
	}
	if p := cfg.History.Path; p != "" && p != ":memory:" && !filepath.IsAbs(p) {
		cfg.History.Path = filepath.Join(dir, p)
	}
}
