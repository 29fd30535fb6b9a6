package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for unusable settings
var ErrInvalidConfig = errors.New("invalid configuration")

// ETLConfig holds the configuration of the synchronization engine
type ETLConfig struct {
	// Source (sakila, MySQL, read-only)
	Source DatabaseConfig `yaml:"source"`

	// Target analytics store (SQLite)
	Target TargetConfig `yaml:"target"`

	Sync    SyncConfig    `yaml:"sync"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
}

// DatabaseConfig holds the connection settings of the source store
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// TargetConfig holds the analytics store settings
type TargetConfig struct {
	Path string `yaml:"path"`

	// Pool size of a file database; monitor reads need connections beside
	// the one held by a run transaction
	MaxOpenConns int `yaml:"max_open_conns"`
}

// SyncConfig holds scheduling and reconciliation settings
type SyncConfig struct {
	// Interval between scheduled incremental runs
	RunInterval time.Duration `yaml:"run_interval"`

	// Trailing window of the reconciliation check, in days
	ValidationLookbackDays int `yaml:"validation_lookback_days"`
}

// LoggingConfig controls the ETL logger
type LoggingConfig struct {
	Verbose     bool `yaml:"verbose"`
	Development bool `yaml:"development"`

	// Directory for the daily log file; empty disables file logging
	Dir string `yaml:"dir"`
}

// ServerConfig holds the monitor server settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default configuration values
var (
	DefaultSourceConfig = DatabaseConfig{
		Host:   "localhost",
		Port:   3306,
		User:   "root",
		DBName: "sakila",
	}

	DefaultTargetConfig = TargetConfig{
		Path:         "analytics.db",
		MaxOpenConns: 4,
	}

	DefaultETLConfig = ETLConfig{
		Source: DefaultSourceConfig,
		Target: DefaultTargetConfig,
		Sync: SyncConfig{
			RunInterval:            1 * time.Hour,
			ValidationLookbackDays: 30,
		},
		Logging: LoggingConfig{
			Verbose: true,
		},
		Server: ServerConfig{
			Addr: ":8085",
		},
	}
)

// GetConfig returns the default configuration with environment overrides applied
func GetConfig() ETLConfig {
	config := DefaultETLConfig
	applyEnv(&config)
	return config
}

// LoadConfig reads a YAML configuration file on top of the defaults.
// An empty path yields the defaults.
func LoadConfig(path string) (ETLConfig, error) {
	if path == "" {
		return GetConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ETLConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultETLConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return ETLConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	// Zero values in the file fall back to the defaults
	if config.Source.Port == 0 {
		config.Source.Port = DefaultSourceConfig.Port
	}
	if config.Target.Path == "" {
		config.Target.Path = DefaultTargetConfig.Path
	}
	if config.Target.MaxOpenConns == 0 {
		config.Target.MaxOpenConns = DefaultTargetConfig.MaxOpenConns
	}
	if config.Sync.RunInterval == 0 {
		config.Sync.RunInterval = DefaultETLConfig.Sync.RunInterval
	}
	if config.Sync.ValidationLookbackDays == 0 {
		config.Sync.ValidationLookbackDays = DefaultETLConfig.Sync.ValidationLookbackDays
	}
	if config.Server.Addr == "" {
		config.Server.Addr = DefaultETLConfig.Server.Addr
	}

	applyEnv(&config)
	return config, nil
}

// applyEnv keeps credentials out of the config file when needed
func applyEnv(config *ETLConfig) {
	if pw, ok := os.LookupEnv("ETL_SOURCE_PASSWORD"); ok {
		config.Source.Password = pw
	}
	if path, ok := os.LookupEnv("ETL_TARGET_PATH"); ok && path != "" {
		config.Target.Path = path
	}
}

// Validate checks that the configuration is usable
func (c ETLConfig) Validate() error {
	if c.Source.Host == "" {
		return fmt.Errorf("%w: source.host is required", ErrInvalidConfig)
	}
	if c.Source.DBName == "" {
		return fmt.Errorf("%w: source.dbname is required", ErrInvalidConfig)
	}
	if c.Target.Path == "" {
		return fmt.Errorf("%w: target.path is required", ErrInvalidConfig)
	}
	if c.Target.MaxOpenConns < 1 {
		return fmt.Errorf("%w: target.max_open_conns must be at least 1", ErrInvalidConfig)
	}
	if c.Sync.RunInterval < time.Minute {
		return fmt.Errorf("%w: sync.run_interval must be at least 1m", ErrInvalidConfig)
	}
	if c.Sync.ValidationLookbackDays < 1 {
		return fmt.Errorf("%w: sync.validation_lookback_days must be positive", ErrInvalidConfig)
	}
	return nil
}
