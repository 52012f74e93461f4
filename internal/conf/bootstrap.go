// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment
// variables, with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies
// defaults, and allows overrides from environment variables prefixed with
// RATEPILOT_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Required environment variables:
//   - MYSQL_DSN or RATEPILOT_DATA_DATABASE_SOURCE: MySQL connection string
//   - CHANNEL_API_KEY or RATEPILOT_SYNC_CHANNEL_API_KEY: booking-channel API key
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Enable environment variable support with RATEPILOT_ prefix
	v.SetEnvPrefix("RATEPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without RATEPILOT_ prefix)
	// for compatibility
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "RATEPILOT_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "RATEPILOT_DATA_REDIS_ADDR")
	_ = v.BindEnv("sync.channel_api_key", "CHANNEL_API_KEY", "RATEPILOT_SYNC_CHANNEL_API_KEY")
	_ = v.BindEnv("sync.channel_url", "CHANNEL_URL", "RATEPILOT_SYNC_CHANNEL_URL")
	_ = v.BindEnv("sync.compute_url", "COMPUTE_URL", "RATEPILOT_SYNC_COMPUTE_URL")

	// Load configuration file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	// Parse configuration into Bootstrap structure
	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
		},
		Sync: &Sync{
			ChannelUrl:               v.GetString("sync.channel_url"),
			ChannelApiKey:            v.GetString("sync.channel_api_key"),
			ComputeUrl:               v.GetString("sync.compute_url"),
			ProxyUrl:                 v.GetString("sync.proxy_url"),
			RequestTimeout:           durationpb.New(v.GetDuration("sync.request_timeout")),
			InterRequestDelay:        durationpb.New(v.GetDuration("sync.inter_request_delay")),
			MaxAttempts:              v.GetInt32("sync.max_attempts"),
			InitialDelay:             durationpb.New(v.GetDuration("sync.initial_delay")),
			MaxDelay:                 durationpb.New(v.GetDuration("sync.max_delay")),
			BackoffFactor:            v.GetFloat64("sync.backoff_factor"),
			FailureThreshold:         v.GetInt32("sync.failure_threshold"),
			VolumeThreshold:          v.GetInt32("sync.volume_threshold"),
			ErrorThresholdPercentage: v.GetFloat64("sync.error_threshold_percentage"),
			TimeoutWindow:            durationpb.New(v.GetDuration("sync.timeout_window")),
			MonitoringWindow:         durationpb.New(v.GetDuration("sync.monitoring_window")),
			CacheTtl:                 durationpb.New(v.GetDuration("sync.cache_ttl")),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	// Validate required fields
	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 5*time.Minute)

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is required from environment

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// Sync defaults
	// Note: sync.channel_url, sync.channel_api_key and sync.compute_url
	// are required from environment or config file
	v.SetDefault("sync.request_timeout", 15*time.Second)
	v.SetDefault("sync.inter_request_delay", 500*time.Millisecond)
	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("sync.initial_delay", time.Second)
	v.SetDefault("sync.max_delay", 30*time.Second)
	v.SetDefault("sync.backoff_factor", 2.0)
	v.SetDefault("sync.failure_threshold", 5)
	v.SetDefault("sync.volume_threshold", 10)
	v.SetDefault("sync.error_threshold_percentage", 50.0)
	v.SetDefault("sync.timeout_window", 30*time.Second)
	v.SetDefault("sync.monitoring_window", time.Minute)
	v.SetDefault("sync.cache_ttl", 5*time.Minute)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and
// valid. It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		missingFields = append(missingFields, "data.database.source (MYSQL_DSN)")
	}

	if bc.Sync == nil || bc.Sync.ChannelUrl == "" {
		missingFields = append(missingFields, "sync.channel_url (CHANNEL_URL)")
	}

	if bc.Sync == nil || bc.Sync.ChannelApiKey == "" {
		missingFields = append(missingFields, "sync.channel_api_key (CHANNEL_API_KEY)")
	}

	if bc.Sync == nil || bc.Sync.ComputeUrl == "" {
		missingFields = append(missingFields, "sync.compute_url (COMPUTE_URL)")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	return nil
}
