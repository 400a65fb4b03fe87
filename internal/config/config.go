package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/akkordio/akkordio/internal/engine"
)

// SearchConfig bounds the fingering search.
type SearchConfig struct {
	// BeamWidth caps the open set; 0 runs full A*.
	BeamWidth int `json:"beam_width"`
	// MaxExpansions bounds node expansions per solve; 0 is unbounded.
	MaxExpansions int `json:"max_expansions"`
	// SolveTimeoutSec is the wall-clock budget per solve; 0 disables it.
	SolveTimeoutSec int `json:"solve_timeout_sec"`
}

// Config holds application configuration.
type Config struct {
	ListenAddr          string         `json:"listen_addr"`
	UploadDir           string         `json:"upload_dir"`
	ProcessedDir        string         `json:"processed_dir"`
	DefaultTreblePreset string         `json:"default_treble_preset"`
	MaxUploadBytes      int64          `json:"max_upload_bytes"`
	Weights             engine.Weights `json:"weights"`
	Search              SearchConfig   `json:"search"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		ListenAddr:          ":8000",
		UploadDir:           "uploads",
		ProcessedDir:        "processed",
		DefaultTreblePreset: "c_system_5row",
		MaxUploadBytes:      10 << 20,
		Weights:             engine.DefaultWeights(),
		Search: SearchConfig{
			MaxExpansions:   2_000_000,
			SolveTimeoutSec: 60,
		},
	}
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "akkordio"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, returning defaults if not found
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
