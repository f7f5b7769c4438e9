package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the structure of the optional YAML config file.
type FileConfig struct {
	Addr    string `yaml:"addr"`
	Storage struct {
		DSN string `yaml:"dsn"`
	} `yaml:"storage"`
	Scrape struct {
		TimeoutMS int    `yaml:"timeout_ms"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"scrape"`
	Cache struct {
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"cache"`
}

// LoadConfigFile loads configuration from the given path. Returns nil if
// the file doesn't exist (not an error). Returns an error if the file
// exists but cannot be parsed.
func LoadConfigFile(path string) (*FileConfig, error) {
	if path == "" {
		return nil, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}
