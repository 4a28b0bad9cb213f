package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/peerworks/classifierd/pkg/signing"
)

// Initialize loads classifierd.yaml from configDir, expands environment
// variables, merges it over the built-in defaults, validates the result,
// and returns a ready-to-use Config. This is the primary entry point
// called from cmd/classifierd/main.go.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("loading configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration loaded",
		"worker_threads", cfg.WorkerThreads,
		"http_port", cfg.HTTPPort,
		"tag_index_url", cfg.TagIndexURL)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	path := filepath.Join(configDir, "classifierd.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(path, fmt.Errorf("%w", ErrConfigNotFound))
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	user, err := resolve(&yamlCfg)
	if err != nil {
		return nil, NewLoadError(path, err)
	}

	cfg := defaultConfig()
	if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge user configuration over defaults: %w", err)
	}
	// mergo does not copy zero values, so options set explicitly to zero
	// are applied here and reach validation instead of keeping their default.
	if yamlCfg.WorkerThreads != nil {
		cfg.WorkerThreads = *yamlCfg.WorkerThreads
	}
	if yamlCfg.MinTokens != nil {
		cfg.MinTokens = *yamlCfg.MinTokens
	}
	if yamlCfg.PositiveThreshold != nil {
		cfg.PositiveThreshold = *yamlCfg.PositiveThreshold
	}
	if yamlCfg.HTTPPort != nil {
		cfg.HTTPPort = *yamlCfg.HTTPPort
	}

	return cfg, nil
}

// resolve translates the on-disk YAML shape (optional pointers, duration
// strings) into a partial Config mergo can overlay onto the defaults.
func resolve(y *YAMLConfig) (*Config, error) {
	cfg := &Config{
		PerformanceLog: y.PerformanceLog,
		TagIndexURL:    y.TagIndexURL,
		AllowedIP:      y.AllowedIP,
	}

	if y.CacheUpdateWaitTime != "" {
		d, err := parseSecondsOrDuration(y.CacheUpdateWaitTime)
		if err != nil {
			return nil, fmt.Errorf("cache_update_wait_time: %w", err)
		}
		cfg.CacheUpdateWaitTime = d
	}
	if y.LoadItemsSince != "" {
		days, err := parseDays(y.LoadItemsSince)
		if err != nil {
			return nil, fmt.Errorf("load_items_since: %w", err)
		}
		cfg.LoadItemsSince = days
	}
	if y.MinTokens != nil {
		cfg.MinTokens = *y.MinTokens
	}
	if y.WorkerThreads != nil {
		cfg.WorkerThreads = *y.WorkerThreads
	}
	if y.PositiveThreshold != nil {
		cfg.PositiveThreshold = *y.PositiveThreshold
	}
	if y.HTTPPort != nil {
		cfg.HTTPPort = *y.HTTPPort
	}
	if y.Credentials != nil {
		cfg.Credentials = signing.Credentials{
			AccessID:  y.Credentials.AccessID,
			SecretKey: y.Credentials.SecretKey,
		}
	}

	return cfg, nil
}

// parseSecondsOrDuration accepts either a bare integer (seconds, matching
// the original Winnow config's plain-number style) or a Go duration string.
func parseSecondsOrDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	var seconds int
	if _, err := fmt.Sscanf(s, "%d", &seconds); err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(seconds) * time.Second, nil
}

// parseDays accepts a bare integer count of days.
func parseDays(s string) (time.Duration, error) {
	var days int
	if _, err := fmt.Sscanf(s, "%d", &days); err != nil {
		return 0, fmt.Errorf("invalid day count %q", s)
	}
	return time.Duration(days) * 24 * time.Hour, nil
}
