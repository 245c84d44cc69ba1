// Package config loads service settings from defaults, an optional YAML file and
// GCADG_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/detectors"
)

type Config struct {
	Port               int            `mapstructure:"port"`
	AllowedOrigins     []string       `mapstructure:"allowed_origins"`
	Database           DatabaseConfig `mapstructure:"database"`
	Log                LogConfig      `mapstructure:"log"`
	Model              ModelConfig    `mapstructure:"model"`
	Detector           DetectorConfig `mapstructure:"detector"`
	RequestTimeoutSec  int            `mapstructure:"request_timeout_sec"`  // HTTP read/write and per-request context
	ShutdownTimeoutSec int            `mapstructure:"shutdown_timeout_sec"` // Graceful shutdown wait
	RateLimit          RateLimit      `mapstructure:"rate_limit"`
	RecentLogsLimit    int            `mapstructure:"recent_logs_limit"` // Default page size for GET /logs
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres or sqlite
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	File       string `mapstructure:"file"`   // empty = stderr only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type ModelConfig struct {
	Path string `mapstructure:"path"`
}

type DetectorConfig struct {
	Trees         int     `mapstructure:"trees"`
	SampleSize    int     `mapstructure:"sample_size"`
	Contamination float64 `mapstructure:"contamination"`
	Seed          int64   `mapstructure:"seed"`
}

type RateLimit struct {
	AnomaliesPerMinute int  `mapstructure:"anomalies_per_minute"` // 0 = no limit
	TrustForwardedFor  bool `mapstructure:"trust_forwarded_for"`  // key clients on X-Forwarded-For
}

// Load reads configuration. An explicit file path must exist; otherwise config.yaml is
// looked up in the usual locations and is optional.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GCADG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/gcadg/")
		v.AddConfigPath("$HOME/.gcadg")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := detectors.DefaultConfig()

	v.SetDefault("port", 5007)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./gcadg.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("model.path", "./model.gcadg")
	v.SetDefault("detector.trees", def.Trees)
	v.SetDefault("detector.sample_size", def.SampleSize)
	v.SetDefault("detector.contamination", def.Contamination)
	v.SetDefault("detector.seed", def.RandomSeed)
	v.SetDefault("request_timeout_sec", 60)
	v.SetDefault("shutdown_timeout_sec", 15)
	v.SetDefault("rate_limit.anomalies_per_minute", 30)
	v.SetDefault("rate_limit.trust_forwarded_for", false)
	v.SetDefault("recent_logs_limit", 10)
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Detector.Contamination < 0 || c.Detector.Contamination >= 0.5 {
		return fmt.Errorf("detector.contamination must be in [0, 0.5), got %v", c.Detector.Contamination)
	}
	if c.Detector.Trees <= 0 {
		return fmt.Errorf("detector.trees must be positive, got %d", c.Detector.Trees)
	}
	if c.Detector.SampleSize < 2 {
		return fmt.Errorf("detector.sample_size must be at least 2, got %d", c.Detector.SampleSize)
	}
	if c.RequestTimeoutSec <= 0 {
		return fmt.Errorf("request_timeout_sec must be positive, got %d", c.RequestTimeoutSec)
	}
	if c.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("shutdown_timeout_sec must be positive, got %d", c.ShutdownTimeoutSec)
	}
	if c.RecentLogsLimit <= 0 {
		c.RecentLogsLimit = 10
	}
	return nil
}

// DetectorConfig converts the detector section for iforest.WithConfig.
func (c *Config) DetectorConfig() detectors.Config {
	cfg := detectors.DefaultConfig()
	cfg.Trees = c.Detector.Trees
	cfg.SampleSize = c.Detector.SampleSize
	cfg.Contamination = c.Detector.Contamination
	cfg.RandomSeed = c.Detector.Seed
	return cfg
}
