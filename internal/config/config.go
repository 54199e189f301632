// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Latency tracking configuration
	Tracking TrackingConfig `mapstructure:"tracking"`

	// Motion resampling configuration
	Resample ResampleConfig `mapstructure:"resample"`

	// Timeline store configuration
	Store StoreConfig `mapstructure:"store"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// TrackingConfig contains latency tracker settings
type TrackingConfig struct {
	// DispatchTimeoutMs is the unmultiplied dispatch timeout. Events older
	// than DispatchTimeoutMs * TimeoutMultiplier are mature and get
	// reported and pruned.
	DispatchTimeoutMs int `mapstructure:"dispatch_timeout_ms"`

	// TimeoutMultiplier scales the dispatch timeout for slow hosts
	// (emulators, instrumented builds).
	TimeoutMultiplier float64 `mapstructure:"timeout_multiplier"`
}

// MaturityThreshold returns the age past which a pending event is reported
// and pruned.
func (t TrackingConfig) MaturityThreshold() time.Duration {
	return time.Duration(float64(t.DispatchTimeoutMs) * t.TimeoutMultiplier * float64(time.Millisecond))
}

// ResampleConfig contains motion resampler tuning
type ResampleConfig struct {
	MinDeltaMs      int `mapstructure:"min_delta_ms"`      // Minimum spacing between reference samples
	MaxDeltaMs      int `mapstructure:"max_delta_ms"`      // Maximum spacing for extrapolation references
	MaxPredictionMs int `mapstructure:"max_prediction_ms"` // Hard cap on extrapolation distance
	LatencyOffsetMs int `mapstructure:"latency_offset_ms"` // Resample this far behind the frame time
}

// StoreConfig contains timeline store settings
type StoreConfig struct {
	Path string `mapstructure:"path"` // SQLite database path
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Tracking: TrackingConfig{
			DispatchTimeoutMs: 5000,
			TimeoutMultiplier: 1.0,
		},
		Resample: ResampleConfig{
			MinDeltaMs:      2,
			MaxDeltaMs:      20,
			MaxPredictionMs: 8,
			LatencyOffsetMs: 5,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Logging: LoggingConfig{
			LogLevel: "",
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("lagmon")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/lagmon")
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "lagmon"))
		}
		viper.AddConfigPath(".")
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("tracking.dispatch_timeout_ms", DefaultConfig.Tracking.DispatchTimeoutMs)
	viper.SetDefault("tracking.timeout_multiplier", DefaultConfig.Tracking.TimeoutMultiplier)

	viper.SetDefault("resample.min_delta_ms", DefaultConfig.Resample.MinDeltaMs)
	viper.SetDefault("resample.max_delta_ms", DefaultConfig.Resample.MaxDeltaMs)
	viper.SetDefault("resample.max_prediction_ms", DefaultConfig.Resample.MaxPredictionMs)
	viper.SetDefault("resample.latency_offset_ms", DefaultConfig.Resample.LatencyOffsetMs)

	viper.SetDefault("store.path", DefaultConfig.Store.Path)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/lagmon/lagmon.toml"
	}

	return filepath.Join(home, ".config", "lagmon", "lagmon.toml")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lagmon.db"
	}
	return filepath.Join(home, ".local", "share", "lagmon", "lagmon.db")
}
