package config

import "time"

// defaultConfig returns the built-in configuration merged under any
// user-supplied classifierd.yaml, matching spec.md's §6 configuration
// surface defaults.
func defaultConfig() *Config {
	return &Config{
		CacheUpdateWaitTime: 1 * time.Second,
		LoadItemsSince:      90 * 24 * time.Hour,
		MinTokens:           2,
		WorkerThreads:       4,
		PositiveThreshold:   0.5,
		HTTPPort:            8080,
	}
}
