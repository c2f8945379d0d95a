// Package config provides configuration loading and management for slideposarea.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Analysis parameters controlling the metric computation
	Analysis Analysis `yaml:"analysis"`

	// Output parameters
	Output struct {
		// Dir is the directory processed workbooks are written to
		Dir string `yaml:"dir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// Analysis holds the numeric constants of the metric computation. They are
// passed into the processing engine explicitly rather than read from global
// state, so concurrent per-slide runs stay deterministic.
type Analysis struct {
	// PyramidLevel is the working resolution level of the image pyramid.
	// Level 0 is full resolution; each level above it halves both axes.
	// Level 2 bounds memory for whole-slide images while staying fine
	// enough for area statistics.
	PyramidLevel int `yaml:"pyramidLevel"`

	// GaussianSigma is the standard deviation of the isotropic smoothing
	// applied to every channel plane before thresholding.
	GaussianSigma float64 `yaml:"gaussianSigma"`

	// BasePixelSize is the physical size of one full-resolution pixel in
	// microns.
	BasePixelSize float64 `yaml:"basePixelSize"`

	// ReferenceChannel is the 1-based channel that defines the tissue
	// region mask. Every input must configure a threshold for it.
	ReferenceChannel int `yaml:"referenceChannel"`
}

// PixelSize returns the physical pixel size in microns at the working
// resolution level: the base pixel size doubled once per pyramid level.
func (a Analysis) PixelSize() float64 {
	return a.BasePixelSize * math.Pow(2, float64(a.PyramidLevel))
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default analysis parameters
	cfg.Analysis.PyramidLevel = 2
	cfg.Analysis.GaussianSigma = 1.0
	cfg.Analysis.BasePixelSize = 0.325
	cfg.Analysis.ReferenceChannel = 2

	// Set default output parameters
	cfg.Output.Dir = "results"
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

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
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
