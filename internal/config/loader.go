package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a configuration file and applies it over Default.
//
// The file format is determined by extension:
//   - .json -> JSON
//   - anything else -> YAML
//
// The result is validated; a *ValidationErrors lists every problem found.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data over Default without validating it. Fields missing from
// data keep their default values.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config (unknown format %s): %w", ext, err)
		}
	}

	return cfg, nil
}

// ConformanceSecret returns the conformance secret, falling back to Secret.
func (c *Config) ConformanceSecret() string {
	if c.Conformance.Secret != "" {
		return c.Conformance.Secret
	}
	return c.Secret
}
