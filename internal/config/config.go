package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Log         LogConfig       `mapstructure:"log"`
	Engine      EngineConfig    `mapstructure:"engine"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port                int    `mapstructure:"port"`
	Host                string `mapstructure:"host"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `mapstructure:"idle_timeout_seconds"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig contains Redis configuration. Redis is optional; without it
// the release cache runs in process memory.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// EngineConfig contains decision engine tunables
type EngineConfig struct {
	CacheTTLMinutes     int `mapstructure:"cache_ttl_minutes"`
	AutoImportThreshold int `mapstructure:"auto_import_threshold"`
	AutoImportMargin    int `mapstructure:"auto_import_margin"`
}

// SchedulerConfig contains periodic sweep configuration
type SchedulerConfig struct {
	FeedSweepMinutes   int `mapstructure:"feed_sweep_minutes"`
	HealthSweepMinutes int `mapstructure:"health_sweep_minutes"`
	RequestsPerMinute  int `mapstructure:"requests_per_minute"`
}

// CacheTTL returns the release cache TTL as a duration
func (c *EngineConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// Load loads the configuration from file and environment variables
func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("environment", "development")

	viper.SetDefault("server.port", 8686)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout_seconds", 30)
	viper.SetDefault("server.write_timeout_seconds", 30)
	viper.SetDefault("server.idle_timeout_seconds", 120)

	viper.SetDefault("database.path", "./data/fixturefox.db")
	viper.SetDefault("database.migrations_path", "./database/migrations")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("log.level", "info")

	viper.SetDefault("engine.cache_ttl_minutes", 60)
	viper.SetDefault("engine.auto_import_threshold", 85)
	viper.SetDefault("engine.auto_import_margin", 10)

	viper.SetDefault("scheduler.feed_sweep_minutes", 15)
	viper.SetDefault("scheduler.health_sweep_minutes", 5)
	viper.SetDefault("scheduler.requests_per_minute", 30)

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/fixturefox")

	// Environment variable settings
	viper.SetEnvPrefix("FIXTUREFOX")
	viper.AutomaticEnv()

	// Set key replacer to handle nested keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, using defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
