package config

import (
	"time"

	"github.com/peerworks/classifierd/pkg/signing"
)

// YAMLConfig is the shape of classifierd.yaml on disk.
type YAMLConfig struct {
	CacheUpdateWaitTime string           `yaml:"cache_update_wait_time"`
	LoadItemsSince      string           `yaml:"load_items_since"`
	MinTokens           *int             `yaml:"min_tokens"`
	WorkerThreads       *int             `yaml:"worker_threads"`
	PositiveThreshold   *float64         `yaml:"positive_threshold"`
	PerformanceLog      string           `yaml:"performance_log"`
	TagIndexURL         string           `yaml:"tag_index_url"`
	Credentials         *CredentialsYAML `yaml:"credentials"`
	HTTPPort            *int             `yaml:"http_port"`
	AllowedIP           string           `yaml:"allowed_ip"`
}

// CredentialsYAML holds the HMAC signing identity for upstream calls.
type CredentialsYAML struct {
	AccessID  string `yaml:"access_id"`
	SecretKey string `yaml:"secret_key"`
}

// Config is the resolved, ready-to-use configuration: every duration and
// numeric option parsed, every default applied. This is what main wires
// into the item cache, tagger cache, and engine constructors.
type Config struct {
	CacheUpdateWaitTime time.Duration
	LoadItemsSince      time.Duration
	MinTokens           int
	WorkerThreads       int
	PositiveThreshold   float64
	PerformanceLog      string
	TagIndexURL         string
	Credentials         signing.Credentials
	HTTPPort            int
	AllowedIP           string
}
