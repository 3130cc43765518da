package config_test

import (
	"os"
	"testing"
	"time"

	testify "github.com/stretchr/testify/assert"

	"github.com/kode4food/twill/internal/assert"
	"github.com/kode4food/twill/internal/assert/helpers"
	"github.com/kode4food/twill/internal/config"
)

func TestConfigValidation(t *testing.T) {
	as := assert.New(t)

	t.Run("valid_default_config", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		as.ConfigValid(cfg)
	})

	t.Run("valid_test_config", func(t *testing.T) {
		cfg := helpers.NewTestConfig()
		as.ConfigValid(cfg)
	})

	tests := []struct {
		name          string
		configMod     func(*config.Config)
		errorContains string
	}{
		{
			name: "invalid_api_port_zero",
			configMod: func(c *config.Config) {
				c.APIPort = 0
			},
			errorContains: "invalid API port",
		},
		{
			name: "invalid_api_port_negative",
			configMod: func(c *config.Config) {
				c.APIPort = -1
			},
			errorContains: "invalid API port",
		},
		{
			name: "invalid_api_port_too_high",
			configMod: func(c *config.Config) {
				c.APIPort = 70000
			},
			errorContains: "invalid API port",
		},
		{
			name: "zero_watch_interval",
			configMod: func(c *config.Config) {
				c.WatchInterval = 0
			},
			errorContains: "watch interval must be positive",
		},
		{
			name: "zero_debounce_interval",
			configMod: func(c *config.Config) {
				c.DebounceInterval = 0
			},
			errorContains: "debounce interval must be positive",
		},
		{
			name: "zero_http_timeout",
			configMod: func(c *config.Config) {
				c.HTTPTimeout = 0
			},
			errorContains: "HTTP timeout must be positive",
		},
		{
			name: "zero_path_cache",
			configMod: func(c *config.Config) {
				c.PathCacheSize = 0
			},
			errorContains: "cache size must be positive",
		},
		{
			name: "zero_script_cache",
			configMod: func(c *config.Config) {
				c.ScriptCacheSize = 0
			},
			errorContains: "cache size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := helpers.NewTestConfig()
			tt.configMod(cfg)
			as.ConfigInvalid(cfg, tt.errorContains)
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	as := assert.New(t)

	cfg := config.NewDefaultConfig()

	as.Equal(config.DefaultAPIPort, cfg.APIPort)
	as.Equal("0.0.0.0", cfg.APIHost)
	as.Equal(config.DefaultFlowPath, cfg.FlowPath)
	as.Equal(config.DefaultProfilePath, cfg.ProfilePath)
	as.Equal(config.DefaultWatchInterval, cfg.WatchInterval)
	as.Equal(config.DefaultDebounceInterval, cfg.DebounceInterval)
	as.Equal(config.DefaultShutdownTimeout, cfg.ShutdownTimeout)
	as.Equal(config.DefaultRedisAddr, cfg.RedisAddr)
	as.Equal("info", cfg.LogLevel)
	as.False(cfg.StrictCapabilities)
}

func TestValidateValidEdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{
			name:   "min_valid_port",
			modify: func(c *config.Config) { c.APIPort = 1 },
		},
		{
			name:   "max_valid_port",
			modify: func(c *config.Config) { c.APIPort = 65535 },
		},
		{
			name: "one_nanosecond_intervals",
			modify: func(c *config.Config) {
				c.WatchInterval = 1
				c.DebounceInterval = 1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			testify.NoError(t, err)
		})
	}
}

func TestConfigLoadFromEnv(t *testing.T) {
	tests := []struct {
		envVars map[string]string
		check   func(*testing.T, *config.Config)
		name    string
	}{
		{
			name: "load_api_port",
			envVars: map[string]string{
				"TWILL_API_PORT": "9090",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.Equal(t, 9090, c.APIPort)
			},
		},
		{
			name: "load_api_host",
			envVars: map[string]string{
				"TWILL_API_HOST": "127.0.0.1",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.Equal(t, "127.0.0.1", c.APIHost)
			},
		},
		{
			name: "load_flow_path",
			envVars: map[string]string{
				"TWILL_FLOW_PATH": "/etc/twill/flow.yaml",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.Equal(t, "/etc/twill/flow.yaml", c.FlowPath)
			},
		},
		{
			name: "load_profile_path",
			envVars: map[string]string{
				"TWILL_PROFILE_PATH": "/etc/twill/profile.yaml",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.Equal(t, "/etc/twill/profile.yaml", c.ProfilePath)
			},
		},
		{
			name: "load_log_level",
			envVars: map[string]string{
				"TWILL_LOG_LEVEL": "debug",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.Equal(t, "debug", c.LogLevel)
			},
		},
		{
			name: "load_watch_interval",
			envVars: map[string]string{
				"TWILL_WATCH_INTERVAL": "250ms",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.Equal(t, 250*time.Millisecond, c.WatchInterval)
			},
		},
		{
			name: "load_debounce_interval",
			envVars: map[string]string{
				"TWILL_DEBOUNCE_INTERVAL": "2s",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.Equal(t, 2*time.Second, c.DebounceInterval)
			},
		},
		{
			name: "load_strict_capabilities",
			envVars: map[string]string{
				"TWILL_STRICT_CAPABILITIES": "true",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.True(t, c.StrictCapabilities)
			},
		},
		{
			name: "load_archive_bucket",
			envVars: map[string]string{
				"TWILL_ARCHIVE_BUCKET": "mem://runs",
				"TWILL_ARCHIVE_PREFIX": "archive/",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.Equal(t, "mem://runs", c.ArchiveBucketURL)
				testify.Equal(t, "archive/", c.ArchivePrefix)
			},
		},
		{
			name: "load_redis_addr",
			envVars: map[string]string{
				"TWILL_REDIS_ADDR": "redis.example.com:6379",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.Equal(t, "redis.example.com:6379", c.RedisAddr)
			},
		},
		{
			name: "load_cache_sizes",
			envVars: map[string]string{
				"TWILL_PATH_CACHE_SIZE":   "8192",
				"TWILL_SCRIPT_CACHE_SIZE": "64",
			},
			check: func(t *testing.T, c *config.Config) {
				testify.Equal(t, 8192, c.PathCacheSize)
				testify.Equal(t, 64, c.ScriptCacheSize)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				_ = os.Setenv(key, value)
				t.Cleanup(func() { _ = os.Unsetenv(key) })
			}

			cfg := config.NewDefaultConfig()
			testify.NoError(t, cfg.LoadFromEnv())
			tt.check(t, cfg)
		})
	}
}

func TestConfigLoadFromEnvErrors(t *testing.T) {
	tests := []struct {
		envVars map[string]string
		name    string
	}{
		{
			name: "unparseable_port",
			envVars: map[string]string{
				"TWILL_API_PORT": "not_a_number",
			},
		},
		{
			name: "port_out_of_range",
			envVars: map[string]string{
				"TWILL_API_PORT": "70000",
			},
		},
		{
			name: "unparseable_interval",
			envVars: map[string]string{
				"TWILL_WATCH_INTERVAL": "fast",
			},
		},
		{
			name: "negative_interval",
			envVars: map[string]string{
				"TWILL_DEBOUNCE_INTERVAL": "-5s",
			},
		},
		{
			name: "unparseable_strict_flag",
			envVars: map[string]string{
				"TWILL_STRICT_CAPABILITIES": "maybe",
			},
		},
		{
			name: "zero_cache_size",
			envVars: map[string]string{
				"TWILL_PATH_CACHE_SIZE": "0",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				_ = os.Setenv(key, value)
				t.Cleanup(func() { _ = os.Unsetenv(key) })
			}

			cfg := config.NewDefaultConfig()
			testify.Error(t, cfg.LoadFromEnv())
		})
	}
}
