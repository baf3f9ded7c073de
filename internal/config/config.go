// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// Durable store. An empty URL means no store is configured and the
	// pipeline runs in degraded mode for the lifetime of the process.
	DatabaseURL          string `mapstructure:"databaseurl"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Geolocation settings. When GeoDBPath points at a readable GeoLite2
	// database it is preferred over the HTTP lookup service.
	GeoDBPath     string `mapstructure:"geodbpath"`
	GeoAPIBaseURL string `mapstructure:"geoapibaseurl"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "pagebeam")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("databaseurl", "")
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("geodbpath", "")
		v.SetDefault("geoapibaseurl", "https://ipapi.co")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)

		// Bind environment variables
		v.BindEnv("appname", "PAGEBEAM_APP_NAME")
		v.BindEnv("appport", "PAGEBEAM_APP_PORT")
		v.BindEnv("environment", "PAGEBEAM_ENV")
		v.BindEnv("loglevel", "PAGEBEAM_LOG_LEVEL")
		v.BindEnv("databaseurl", "PAGEBEAM_DATABASE_URL", "DATABASE_URL")
		v.BindEnv("dbmaxopenconns", "PAGEBEAM_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "PAGEBEAM_DB_MAX_IDLE_CONNS")
		v.BindEnv("geodbpath", "PAGEBEAM_GEO_DB_PATH")
		v.BindEnv("geoapibaseurl", "PAGEBEAM_GEO_API_BASE_URL")
		v.BindEnv("logsdir", "PAGEBEAM_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "PAGEBEAM_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "PAGEBEAM_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "PAGEBEAM_LOGS_MAX_AGE_IN_DAYS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}
	return nil
}

// IsStoreConfigured reports whether a durable store connection string is
// present. Read once at startup; the mode never changes mid-process.
func (c *Config) IsStoreConfigured() bool {
	return c.DatabaseURL != ""
}

// IsPostgres reports whether the configured connection string points at a
// networked Postgres store rather than a local SQLite file.
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") ||
		strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetMaxOpenConns returns the connection pool size for the store.
// Test keeps a single connection for stability; otherwise allow concurrent
// reads for parallel stats queries.
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}
	if c.Environment == Test {
		return 1
	}
	return 10
}

// GetMaxIdleConns returns the idle connection count for the store.
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}
	if c.Environment == Test {
		return 1
	}
	return 5
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
