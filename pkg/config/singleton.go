package config

import (
	"fmt"
	"sync"
)

// Overlay adjusts a freshly loaded configuration before it is validated,
// typically to apply command-line flags. It runs on the initial load and on
// every reload.
type Overlay func(*Config) error

var (
	// configMutex protects the process configuration and how it was built.
	configMutex sync.RWMutex

	globalConfig  *Config
	globalSource  string
	globalOverlay Overlay
)

// Load builds the process configuration from the file at path (empty for
// defaults and environment only), applies overlay and validates the result.
// On success the configuration and its sources are stored so Reload can
// rebuild it the same way.
func Load(path string, overlay Overlay) (*Config, error) {
	cfg, err := build(path, overlay)
	if err != nil {
		return nil, err
	}

	configMutex.Lock()
	globalConfig = cfg
	globalSource = path
	globalOverlay = overlay
	configMutex.Unlock()

	return cfg, nil
}

// Reload rebuilds the configuration from the sources given to Load,
// re-applying its overlay. On error the current configuration is kept.
func Reload() (prev, next *Config, err error) {
	configMutex.RLock()
	path, overlay := globalSource, globalOverlay
	configMutex.RUnlock()

	next, err = build(path, overlay)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload configuration: %w", err)
	}

	configMutex.Lock()
	prev = globalConfig
	globalConfig = next
	configMutex.Unlock()

	return prev, next, nil
}

// GetConfig returns the process configuration, or nil before Load.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// Source returns the file path given to Load. Empty means no file is in use.
func Source() string {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalSource
}

func build(path string, overlay Overlay) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	if overlay == nil {
		return cfg, nil
	}

	if err := overlay(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
