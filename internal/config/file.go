package config

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads the YAML configuration at path on top of the defaults.
// A missing file is created with the default values.
func LoadConfig(path string) (*MainConfig, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if werr := WriteConfig(path, cfg); werr != nil {
				// not fatal, the server can still run with defaults
				log.Printf("[CONFIG]: Warning: failed to write default config file %s: %v", path, werr)
			} else {
				log.Printf("[CONFIG]: Wrote default config file %s", path)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.AppVersion = AppVersion
	return cfg, nil
}

// WriteConfig marshals cfg as YAML and replaces the file at path atomically
func WriteConfig(path string, cfg *MainConfig) error {
	cfg.mux.Lock()
	data, err := yaml.Marshal(cfg)
	cfg.mux.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
