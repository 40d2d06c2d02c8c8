package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jagoanbunda/bunda-cli/internal/infra/confloader"
)

// ErrExists is returned by Init when the file is already present.
var ErrExists = errors.New("config file already exists")

// Load merges defaults, the file at path (optional), BUNDA_* variables and
// overrides. An empty path means DefaultPath.
func Load(path string, overrides map[string]any) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	l := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOptionalFile(),
		confloader.WithDefaults(Defaults()),
		confloader.WithOverrides(overrides),
	)

	cfg := &Config{}
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Init writes the default configuration unless the file exists and force
// is false.
func Init(path string, force bool) error {
	if path == "" {
		path = DefaultPath()
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	return Save(Default(), path)
}
