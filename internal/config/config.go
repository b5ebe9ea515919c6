package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "cachekit/pkg/errors"
)

// Duration wraps time.Duration so config files can use "30s" / "5m"
// style values instead of raw nanosecond counts.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	// Cache engine
	Capacity        int      `yaml:"capacity"`
	DefaultTTL      Duration `yaml:"default_ttl"`      // 0 = entries never expire unless given a TTL
	CleanupInterval Duration `yaml:"cleanup_interval"` // 0 = no background sweep
	HashSeed        uint64   `yaml:"hash_seed"`        // 0 = random seed per process
	Shards          int      `yaml:"shards"`

	// Idempotency store
	IdempotencyWindow Duration `yaml:"idempotency_window"`
	PendingTTL        Duration `yaml:"pending_ttl"`

	// Server
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Capacity:          1024,
		DefaultTTL:        Duration(5 * time.Minute),
		CleanupInterval:   Duration(time.Minute),
		Shards:            1,
		IdempotencyWindow: Duration(24 * time.Hour),
		PendingTTL:        Duration(30 * time.Second),
		HTTPAddr:          ":8080",
		LogLevel:          "info",
	}
}

// FromFile reads a YAML config file. Keys absent from the file keep
// their default values.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	conf := Default()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate rejects configurations the engine cannot be built from.
// Capacity 0 is valid and means "cache disabled".
func (c *Config) Validate() error {
	if c.Capacity < 0 {
		return apperrors.ErrInvalidCapacity
	}
	if c.Shards <= 0 {
		return apperrors.ErrInvalidShardCount
	}
	if c.IdempotencyWindow < 0 {
		return apperrors.ErrInvalidWindow
	}
	return nil
}
