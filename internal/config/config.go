package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the twill runtime
	Config struct {
		// Flow & Profile
		FlowPath    string
		ProfilePath string

		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Watcher
		WatchInterval    time.Duration
		DebounceInterval time.Duration

		// Capabilities
		RedisAddr          string
		HTTPTimeout        time.Duration
		StrictCapabilities bool

		// Archiving
		ArchiveBucketURL string
		ArchivePrefix    string

		// Engine
		PathCacheSize   int
		ScriptCacheSize int
		ShutdownTimeout time.Duration
	}
)

const (
	DefaultFlowPath    = "flow.yaml"
	DefaultProfilePath = "profile.yaml"

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultWatchInterval    = time.Second
	DefaultDebounceInterval = 500 * time.Millisecond
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultHTTPTimeout      = 30 * time.Second

	DefaultRedisAddr     = "localhost:6379"
	DefaultArchivePrefix = "runs/"

	DefaultPathCacheSize   = 4096
	DefaultScriptCacheSize = 512

	MaxPathCacheSize   = 1_000_000
	MaxScriptCacheSize = 100_000
	MaxInterval        = time.Hour
	MaxTimeout         = time.Hour
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrInvalidWatchInterval = errors.New(
		"watch interval must be positive",
	)
	ErrInvalidDebounceInterval = errors.New(
		"debounce interval must be positive",
	)
	ErrInvalidHTTPTimeout = errors.New("HTTP timeout must be positive")
	ErrInvalidCacheSize   = errors.New("cache size must be positive")
)

// NewDefaultConfig creates a configuration with sensible defaults for all
// runtime settings, the watcher, and the built-in capabilities
func NewDefaultConfig() *Config {
	return &Config{
		FlowPath:         DefaultFlowPath,
		ProfilePath:      DefaultProfilePath,
		APIPort:          DefaultAPIPort,
		APIHost:          DefaultAPIHost,
		WatchInterval:    DefaultWatchInterval,
		DebounceInterval: DefaultDebounceInterval,
		RedisAddr:        DefaultRedisAddr,
		HTTPTimeout:      DefaultHTTPTimeout,
		ArchivePrefix:    DefaultArchivePrefix,
		PathCacheSize:    DefaultPathCacheSize,
		ScriptCacheSize:  DefaultScriptCacheSize,
		ShutdownTimeout:  DefaultShutdownTimeout,
		LogLevel:         "info",
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	if flowPath := os.Getenv("TWILL_FLOW_PATH"); flowPath != "" {
		c.FlowPath = flowPath
	}
	if profilePath := os.Getenv("TWILL_PROFILE_PATH"); profilePath != "" {
		c.ProfilePath = profilePath
	}
	if apiHost := os.Getenv("TWILL_API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("TWILL_LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if redisAddr := os.Getenv("TWILL_REDIS_ADDR"); redisAddr != "" {
		c.RedisAddr = redisAddr
	}
	if bucketURL := os.Getenv("TWILL_ARCHIVE_BUCKET"); bucketURL != "" {
		c.ArchiveBucketURL = bucketURL
	}
	if prefix := os.Getenv("TWILL_ARCHIVE_PREFIX"); prefix != "" {
		c.ArchivePrefix = prefix
	}
	if strict := os.Getenv("TWILL_STRICT_CAPABILITIES"); strict != "" {
		v, err := strconv.ParseBool(strict)
		if err != nil {
			return fmt.Errorf(
				"invalid TWILL_STRICT_CAPABILITIES: %q", strict,
			)
		}
		c.StrictCapabilities = v
	}

	if err := loadEnvInt(
		"TWILL_API_PORT", &c.APIPort, 0, MaxTCPPort,
	); err != nil {
		return err
	}

	if err := loadEnvInt(
		"TWILL_PATH_CACHE_SIZE", &c.PathCacheSize, 0, MaxPathCacheSize,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"TWILL_SCRIPT_CACHE_SIZE", &c.ScriptCacheSize, 0, MaxScriptCacheSize,
	); err != nil {
		return err
	}

	if err := loadEnvDuration(
		"TWILL_WATCH_INTERVAL", &c.WatchInterval, MaxInterval,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"TWILL_DEBOUNCE_INTERVAL", &c.DebounceInterval, MaxInterval,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"TWILL_HTTP_TIMEOUT", &c.HTTPTimeout, MaxTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"TWILL_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout, MaxTimeout,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.WatchInterval <= 0 {
		return ErrInvalidWatchInterval
	}

	if c.DebounceInterval <= 0 {
		return ErrInvalidDebounceInterval
	}

	if c.HTTPTimeout <= 0 {
		return ErrInvalidHTTPTimeout
	}

	if c.PathCacheSize <= 0 || c.ScriptCacheSize <= 0 {
		return ErrInvalidCacheSize
	}

	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

// loadEnvDuration reads key from the environment, parses it as a duration
// string ("500ms", "2s"), and sets *dst if the value is positive and does
// not exceed max
func loadEnvDuration(key string, dst *time.Duration, max time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	if v <= 0 || v > max {
		return fmt.Errorf("invalid %s: %s out of range (0, %s]", key, v, max)
	}
	*dst = v
	return nil
}
