package config

import (
	"fmt"
	"sync/atomic"
)

// Holder publishes the current configuration. Readers always see a complete
// Config; a reload swaps the pointer and never mutates the old value.
type Holder struct {
	path string
	cfg  atomic.Pointer[Config]
}

// NewHolder creates a Holder seeded with cfg. path is the file Reload reads;
// it may be empty, in which case Reload rebuilds from the environment only.
func NewHolder(path string, cfg *Config) *Holder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	h := &Holder{path: path}
	h.cfg.Store(cfg)
	return h
}

// Path returns the file the holder reloads from.
func (h *Holder) Path() string {
	return h.path
}

// Load returns the current configuration.
// The returned value must be treated as read-only.
func (h *Holder) Load() *Config {
	return h.cfg.Load()
}

// Settings returns the runtime settings of the current configuration.
func (h *Holder) Settings() *Settings {
	return h.cfg.Load().Runtime()
}

// Store replaces the current configuration.
func (h *Holder) Store(cfg *Config) {
	h.cfg.Store(cfg)
}

// Reload loads the file again with environment overrides. The new
// configuration replaces the current one only if loading and validation
// succeed; on error the existing configuration remains in place.
func (h *Holder) Reload() (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(h.path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	h.cfg.Store(cfg)
	return cfg, nil
}
