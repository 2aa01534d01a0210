package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of a hexastore instance
type Config struct {
	// DataDir is where the storage backend keeps its files
	DataDir string `yaml:"data_dir" validate:"required"`

	// Backend selects the key-value store: badger or bolt
	Backend string `yaml:"backend" validate:"oneof=badger bolt"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// MetricsAddr is the listen address of the metrics endpoint
	MetricsAddr string `yaml:"metrics_addr" validate:"required,hostname_port"`

	// BufferSlack over-provisions index levels decoded from a snapshot
	BufferSlack bool `yaml:"buffer_slack"`

	// SaveOnClose writes a snapshot when the store is closed
	SaveOnClose bool `yaml:"save_on_close"`

	// BatchSize bounds how many triples share one dictionary transaction
	BatchSize int `yaml:"batch_size" validate:"gte=1,lte=100000"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DataDir:     "./hexastore_data",
		Backend:     "badger",
		LogLevel:    "info",
		MetricsAddr: "localhost:9090",
		BufferSlack: true,
		SaveOnClose: true,
		BatchSize:   1000,
	}
}

// Load reads a YAML file over the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
