// Package config provides configuration management for zep-pixel-agents.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for zep-pixel-agents.
type Config struct {
	Tracking TrackingConfig `mapstructure:"tracking"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TrackingConfig holds the activity-tracking engine configuration.
// All delays are fixed single-shot values; there is no backoff anywhere in
// the tracking pipeline.
type TrackingConfig struct {
	// TranscriptDir is the directory where agent transcript files appear.
	// Defaults to ~/.claude/projects resolved per tracked working directory.
	TranscriptDir string `mapstructure:"transcriptDir"`

	// StatePath is the JSON snapshot of tracked agent bindings.
	StatePath string `mapstructure:"statePath"`

	// IdleTimeout is how long after a text-only assistant message the agent
	// is presumed to be waiting for input (seconds). The transcript carries
	// no turn-end record for text-only turns, so this is a heuristic.
	IdleTimeout int `mapstructure:"idleTimeout"`

	// StallTimeout is how long a permission-requiring tool may run without
	// any sign of liveness before a stall is reported (seconds).
	StallTimeout int `mapstructure:"stallTimeout"`

	// ToolDoneDelayMS delays tool completion events so that very fast tools
	// still render a visible start state (milliseconds).
	ToolDoneDelayMS int `mapstructure:"toolDoneDelayMs"`

	// PollIntervalMS is the unconditional tailer poll interval, the backstop
	// for missed file-change notifications (milliseconds).
	PollIntervalMS int `mapstructure:"pollIntervalMs"`

	// ScanIntervalMS is the transcript-directory scan interval used for
	// conversation-reset detection (milliseconds).
	ScanIntervalMS int `mapstructure:"scanIntervalMs"`

	// ExistencePollMS is the retry interval while waiting for an expected
	// transcript file to appear (milliseconds).
	ExistencePollMS int `mapstructure:"existencePollMs"`
}

// GatewayConfig holds the WebSocket gateway configuration.
type GatewayConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// NATSConfig holds NATS messaging configuration.
// An empty URL selects the in-memory event bus.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// IdleTimeoutDuration returns the idle timeout as a time.Duration.
func (t *TrackingConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(t.IdleTimeout) * time.Second
}

// StallTimeoutDuration returns the stall timeout as a time.Duration.
func (t *TrackingConfig) StallTimeoutDuration() time.Duration {
	return time.Duration(t.StallTimeout) * time.Second
}

// ToolDoneDelay returns the tool-done emission delay as a time.Duration.
func (t *TrackingConfig) ToolDoneDelay() time.Duration {
	return time.Duration(t.ToolDoneDelayMS) * time.Millisecond
}

// PollInterval returns the tailer poll interval as a time.Duration.
func (t *TrackingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMS) * time.Millisecond
}

// ScanInterval returns the directory scan interval as a time.Duration.
func (t *TrackingConfig) ScanInterval() time.Duration {
	return time.Duration(t.ScanIntervalMS) * time.Millisecond
}

// ExistencePollInterval returns the existence poll interval as a time.Duration.
func (t *TrackingConfig) ExistencePollInterval() time.Duration {
	return time.Duration(t.ExistencePollMS) * time.Millisecond
}

// detectDefaultLogFormat returns the appropriate log format based on environment.
func detectDefaultLogFormat() string {
	if env := os.Getenv("ZEP_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

// defaultStatePath returns the default location of the agent-binding snapshot.
func defaultStatePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "agents.json"
	}
	return filepath.Join(homeDir, ".zep-pixel-agents", "agents.json")
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Tracking defaults
	v.SetDefault("tracking.transcriptDir", "")
	v.SetDefault("tracking.statePath", defaultStatePath())
	v.SetDefault("tracking.idleTimeout", 15)
	v.SetDefault("tracking.stallTimeout", 30)
	v.SetDefault("tracking.toolDoneDelayMs", 300)
	v.SetDefault("tracking.pollIntervalMs", 1000)
	v.SetDefault("tracking.scanIntervalMs", 2000)
	v.SetDefault("tracking.existencePollMs", 500)

	// Gateway defaults
	v.SetDefault("gateway.host", "127.0.0.1")
	v.SetDefault("gateway.port", 7421)

	// NATS defaults - empty URL means use in-memory event bus
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "zep-pixel-agents")
	v.SetDefault("nats.maxReconnects", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix ZEP_ with snake_case naming.
// Config file should be named config.yaml and placed in the current directory
// or ~/.zep-pixel-agents/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults first
	setDefaults(v)

	// Configure environment variables
	v.SetEnvPrefix("ZEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for snake_case env vars (camelCase config keys).
	// AutomaticEnv does not handle camelCase to SNAKE_CASE conversion.
	_ = v.BindEnv("tracking.transcriptDir", "ZEP_TRACKING_TRANSCRIPT_DIR")
	_ = v.BindEnv("tracking.statePath", "ZEP_TRACKING_STATE_PATH")
	_ = v.BindEnv("tracking.idleTimeout", "ZEP_TRACKING_IDLE_TIMEOUT")
	_ = v.BindEnv("tracking.stallTimeout", "ZEP_TRACKING_STALL_TIMEOUT")

	// Configure config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".zep-pixel-agents"))
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Gateway.Port <= 0 || cfg.Gateway.Port > 65535 {
		errs = append(errs, "gateway.port must be between 1 and 65535")
	}

	if cfg.Tracking.IdleTimeout <= 0 {
		errs = append(errs, "tracking.idleTimeout must be positive")
	}
	if cfg.Tracking.StallTimeout <= 0 {
		errs = append(errs, "tracking.stallTimeout must be positive")
	}
	if cfg.Tracking.ToolDoneDelayMS < 0 {
		errs = append(errs, "tracking.toolDoneDelayMs must not be negative")
	}
	if cfg.Tracking.PollIntervalMS <= 0 {
		errs = append(errs, "tracking.pollIntervalMs must be positive")
	}
	if cfg.Tracking.ScanIntervalMS <= 0 {
		errs = append(errs, "tracking.scanIntervalMs must be positive")
	}
	if cfg.Tracking.ExistencePollMS <= 0 {
		errs = append(errs, "tracking.existencePollMs must be positive")
	}
	if cfg.Tracking.StatePath == "" {
		errs = append(errs, "tracking.statePath is required")
	}

	// NATS validation - optional (uses in-memory event bus if not set)

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}
