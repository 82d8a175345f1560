package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Takes   TakesConfig   `mapstructure:"takes"`
}

// SlackConfig defines Slack credentials and channels
type SlackConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	AppToken      string `mapstructure:"app_token"` // socket mode app-level token
	UserToken     string `mapstructure:"user_token"`
	ListenChannel string `mapstructure:"listen_channel"` // channel watched for uploads
	SpamChannel   string `mapstructure:"spam_channel"`   // startup/announce channel
}

// StorageConfig defines the database location
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// MetricsConfig defines the prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TakesConfig defines session thresholds, all in minutes unless noted
type TakesConfig struct {
	DefaultDurationMinutes  int           `mapstructure:"default_duration_minutes"`
	MaxPauseDuration        int           `mapstructure:"max_pause_duration"`
	PauseExpirationWarning  int           `mapstructure:"pause_expiration_warning"`
	LowTimeWarning          int           `mapstructure:"low_time_warning"`
	SweepInterval           time.Duration `mapstructure:"sweep_interval"`
	UploadWindowHours       int           `mapstructure:"upload_window_hours"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("TAKES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found, use defaults and environment variables
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.path", defaultDatabasePath())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("takes.default_duration_minutes", 60)
	v.SetDefault("takes.max_pause_duration", 120)
	v.SetDefault("takes.pause_expiration_warning", 15)
	v.SetDefault("takes.low_time_warning", 5)
	v.SetDefault("takes.sweep_interval", time.Minute)
	v.SetDefault("takes.upload_window_hours", 24)
}

// validate checks configuration consistency
func validate(c *Config) error {
	if c.Takes.DefaultDurationMinutes <= 0 {
		return fmt.Errorf("takes.default_duration_minutes must be positive, got %d", c.Takes.DefaultDurationMinutes)
	}
	if c.Takes.MaxPauseDuration <= 0 {
		return fmt.Errorf("takes.max_pause_duration must be positive, got %d", c.Takes.MaxPauseDuration)
	}
	if c.Takes.PauseExpirationWarning < 0 || c.Takes.PauseExpirationWarning >= c.Takes.MaxPauseDuration {
		return fmt.Errorf("takes.pause_expiration_warning must be in [0, max_pause_duration), got %d", c.Takes.PauseExpirationWarning)
	}
	if c.Takes.LowTimeWarning < 0 {
		return fmt.Errorf("takes.low_time_warning must not be negative, got %d", c.Takes.LowTimeWarning)
	}
	if c.Takes.SweepInterval <= 0 {
		return fmt.Errorf("takes.sweep_interval must be positive, got %s", c.Takes.SweepInterval)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// defaultDatabasePath returns the path to the SQLite database file
func defaultDatabasePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "takes.db"
	}
	return filepath.Join(homeDir, ".takes", "takes.db")
}
