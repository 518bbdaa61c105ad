// Package config loads the small set of knobs the store and viewer
// accept, merging a config.json on disk over a fixed set of defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the on-disk configuration for a store directory. Every
// field is optional in the JSON file; zero values fall back to
// Default()'s values.
type Config struct {
	// ObjectPrefixLength is P in <root>/{file,tree,commit}/<hash[0:P]>/<hash[P:]>.
	ObjectPrefixLength int `json:"object_prefix_length,omitempty"`
	// ViewerLRUCapacity bounds the viewer's open blob-handle cache.
	ViewerLRUCapacity int `json:"viewer_lru_capacity,omitempty"`
	// ViewerLRUIdleSeconds is the idle-eviction threshold for that cache.
	ViewerLRUIdleSeconds int `json:"viewer_lru_idle_seconds,omitempty"`
}

// Default returns the baseline configuration: prefix length 3, LRU
// capacity 500, idle expiry 60s.
func Default() Config {
	return Config{
		ObjectPrefixLength:   3,
		ViewerLRUCapacity:    500,
		ViewerLRUIdleSeconds: 60,
	}
}

// ViewerLRUIdle returns the idle threshold as a time.Duration.
func (c Config) ViewerLRUIdle() time.Duration {
	return time.Duration(c.ViewerLRUIdleSeconds) * time.Second
}

const fileName = "config.json"

// Load reads <storeDir>/config.json if present and merges non-zero
// fields over Default(). A missing file is not an error.
func Load(storeDir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(storeDir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var override Config
	if err := json.Unmarshal(data, &override); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if override.ObjectPrefixLength != 0 {
		cfg.ObjectPrefixLength = override.ObjectPrefixLength
	}
	if override.ViewerLRUCapacity != 0 {
		cfg.ViewerLRUCapacity = override.ViewerLRUCapacity
	}
	if override.ViewerLRUIdleSeconds != 0 {
		cfg.ViewerLRUIdleSeconds = override.ViewerLRUIdleSeconds
	}
	return cfg, nil
}

// Save writes cfg as <storeDir>/config.json.
func Save(storeDir string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(storeDir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
