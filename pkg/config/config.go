// Package config provides configuration loading and management for the
// volumetry service. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"volumetry/pkg/volumetry"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Server parameters
	Server struct {
		// Port is the TCP port the HTTP API listens on
		Port string `yaml:"port"`
	} `yaml:"server"`

	// Storage parameters
	Storage struct {
		// Root is the directory holding per-study data, laid out as
		// <root>/studies/<study-code>/
		Root string `yaml:"root"`

		// SaveParquet additionally writes metrics.parquet next to
		// metrics.json after each analysis
		SaveParquet bool `yaml:"saveParquet"`
	} `yaml:"storage"`

	// Labels is the ordered table mapping integer label values to
	// human-readable names. The order here is the emission order of the
	// output records. The default is the BraTS convention, but any label
	// set may be configured.
	Labels []volumetry.LabelDef `yaml:"labels"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default server parameters
	cfg.Server.Port = "8000"

	// Set default storage parameters
	cfg.Storage.Root = "storage"
	cfg.Storage.SaveParquet = false

	// Set the default label table (BraTS convention)
	cfg.Labels = []volumetry.LabelDef{
		{ID: 1, Name: "ET"},
		{ID: 2, Name: "WT"},
		{ID: 3, Name: "TC"},
	}

	// Set default output parameters
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("config has an empty label table")
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
