package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jagoanbunda/bunda-cli/internal/api"
	"github.com/jagoanbunda/bunda-cli/internal/storage"
	"github.com/jagoanbunda/bunda-cli/internal/telemetry/logger"
)

// Config is the CLI configuration.
type Config struct {
	API     APIConfig     `koanf:"api" yaml:"api" json:"api"`
	Storage StorageConfig `koanf:"storage" yaml:"storage" json:"storage"`
	Log     LogConfig     `koanf:"log" yaml:"log" json:"log"`

	// Output is the default output format: table, json or yaml.
	Output string `koanf:"output" yaml:"output" json:"output"`
}

// APIConfig points the client at the backend.
type APIConfig struct {
	URL                string        `koanf:"url" yaml:"url" json:"url"`
	Timeout            time.Duration `koanf:"timeout" yaml:"timeout" json:"timeout"`
	RateLimit          float64       `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	Burst              int           `koanf:"burst" yaml:"burst" json:"burst"`
	CAFile             string        `koanf:"ca_file" yaml:"ca_file,omitempty" json:"ca_file,omitempty"`
	InsecureSkipVerify bool          `koanf:"insecure_skip_verify" yaml:"insecure_skip_verify,omitempty" json:"insecure_skip_verify"`
}

// StorageConfig selects where the session is kept.
type StorageConfig struct {
	// Engine is "badger" or "memory".
	Engine string `koanf:"engine" yaml:"engine" json:"engine"`
	Dir    string `koanf:"dir" yaml:"dir" json:"dir"`

	// Passphrase enables at-rest encryption of the token and user.
	// Prefer BUNDA_STORAGE_PASSPHRASE over writing it to the file.
	Passphrase string `koanf:"passphrase" yaml:"passphrase,omitempty" json:"passphrase,omitempty"`

	SyncWrites bool `koanf:"sync_writes" yaml:"sync_writes" json:"sync_writes"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Storage engines.
const (
	EngineBadger = "badger"
	EngineMemory = "memory"
)

// Dir returns ~/.bunda, or .bunda when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bunda"
	}
	return filepath.Join(home, ".bunda")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "cli.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	apiCfg := api.DefaultConfig()
	logCfg := logger.DefaultConfig()
	return &Config{
		API: APIConfig{
			URL:       apiCfg.BaseURL,
			Timeout:   apiCfg.Timeout,
			RateLimit: apiCfg.RateLimit,
			Burst:     apiCfg.Burst,
		},
		Storage: StorageConfig{
			Engine:     EngineBadger,
			Dir:        filepath.Join(Dir(), "data"),
			SyncWrites: storage.DefaultBadgerConfig().SyncWrites,
		},
		Log: LogConfig{
			Level:  logCfg.Level,
			Format: logCfg.Format,
		},
		Output: OutputTable,
	}
}

// Defaults flattens Default into dotted keys for the loader.
func Defaults() map[string]any {
	d := Default()
	return map[string]any{
		"api.url":                  d.API.URL,
		"api.timeout":              d.API.Timeout,
		"api.rate_limit":           d.API.RateLimit,
		"api.burst":                d.API.Burst,
		"api.ca_file":              d.API.CAFile,
		"api.insecure_skip_verify": d.API.InsecureSkipVerify,
		"storage.engine":           d.Storage.Engine,
		"storage.dir":              d.Storage.Dir,
		"storage.passphrase":       d.Storage.Passphrase,
		"storage.sync_writes":      d.Storage.SyncWrites,
		"log.level":                d.Log.Level,
		"log.format":               d.Log.Format,
		"output":                   d.Output,
	}
}

// Validate checks enumerated fields and ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.URL) == "" {
		return fmt.Errorf("api.url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}

	switch c.Storage.Engine {
	case EngineBadger:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the badger engine")
		}
	case EngineMemory:
	default:
		return fmt.Errorf("storage.engine: unknown engine %q", c.Storage.Engine)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}

	switch c.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("output: unknown format %q", c.Output)
	}
	return nil
}

// APIClientConfig converts to the HTTP client settings.
func (c *Config) APIClientConfig() api.Config {
	return api.Config{
		BaseURL:            c.API.URL,
		Timeout:            c.API.Timeout,
		RateLimit:          c.API.RateLimit,
		Burst:              c.API.Burst,
		CAFile:             c.API.CAFile,
		InsecureSkipVerify: c.API.InsecureSkipVerify,
	}
}

// KVConfig converts to the storage settings.
func (c *Config) KVConfig() storage.KVConfig {
	kv := storage.DefaultKVConfig(c.Storage.Dir)
	kv.Engine = c.Storage.Engine
	kv.Badger.SyncWrites = c.Storage.SyncWrites
	return kv
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Storage.Passphrase != "" {
		cp.Storage.Passphrase = "***"
	}
	return &cp
}
