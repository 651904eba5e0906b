// Package config provides configuration loading and management for segeval.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"segeval/internal/models"
	"segeval/pkg/evaluation"
	"segeval/pkg/paths"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Dataset location
	Dataset struct {
		// IdentityEnv names the environment variable holding the machine identity
		IdentityEnv string `yaml:"identityEnv"`

		// Roots maps a machine identity to the dataset root on that machine
		Roots map[string]string `yaml:"roots"`

		// Fallback is the identity whose root is used for unknown machines
		Fallback string `yaml:"fallback"`

		// ScanFolder is the folder under the root holding one MAT-file per scan
		ScanFolder string `yaml:"scanFolder"`
	} `yaml:"dataset"`

	// Mask roles within each scan's mask collection
	Masks struct {
		// GroundTruth is the index of the ground-truth envelope
		GroundTruth models.MaskIndex `yaml:"groundTruth"`

		// Segmentation is the index of the automated segmentation to evaluate
		Segmentation models.MaskIndex `yaml:"segmentation"`
	} `yaml:"masks"`

	// Evaluation parameters
	Evaluation struct {
		// Metrics lists the metric names to compute (case-insensitive)
		Metrics []string `yaml:"metrics"`
	} `yaml:"evaluation"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Dataset.IdentityEnv = paths.DefaultIdentityEnv
	cfg.Dataset.Roots = map[string]string{"default": "."}
	cfg.Dataset.Fallback = "default"
	cfg.Dataset.ScanFolder = "MRscans"

	// column 2 is the ground-truth envelope, column 9 the automated candidate
	cfg.Masks.GroundTruth = models.MaskIndex{Row: 0, Col: 2}
	cfg.Masks.Segmentation = models.MaskIndex{Row: 0, Col: 9}

	cfg.Evaluation.Metrics = []string{"vod"}

	cfg.Output.Verbose = false

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

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// A roots table in the file replaces the default one instead of merging
	cfg.Dataset.Roots = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if cfg.Dataset.Roots == nil {
		cfg.Dataset.Roots = DefaultConfig().Dataset.Roots
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks that the path table and metric names are usable
func (c *Config) Validate() error {
	if _, err := c.Resolver(); err != nil {
		return err
	}
	if _, err := c.MetricSet(); err != nil {
		return err
	}
	if c.Masks.GroundTruth.Row < 0 || c.Masks.GroundTruth.Col < 0 ||
		c.Masks.Segmentation.Row < 0 || c.Masks.Segmentation.Col < 0 {
		return fmt.Errorf("mask indices must be non-negative")
	}
	return nil
}

// Resolver builds the path resolver from the dataset section
func (c *Config) Resolver() (*paths.Resolver, error) {
	return paths.NewResolver(c.Dataset.Roots, c.Dataset.Fallback)
}

// MetricSet parses the configured metric names
func (c *Config) MetricSet() (evaluation.MetricSet, error) {
	return evaluation.ParseMetrics(c.Evaluation.Metrics...)
}

// ScanFolder resolves the scan folder for the current machine identity
func (c *Config) ScanFolder() (string, error) {
	r, err := c.Resolver()
	if err != nil {
		return "", err
	}
	return r.Resolve(paths.Identity(c.Dataset.IdentityEnv), c.Dataset.ScanFolder), nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

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
