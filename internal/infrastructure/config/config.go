package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "gdeltnews/internal/shared/config"
)

type Config struct {
	Server      sharedConfig.ServerConfig      `mapstructure:"server"`
	Database    sharedConfig.DatabaseConfig    `mapstructure:"database"`
	Redis       sharedConfig.RedisConfig       `mapstructure:"redis"`
	RateLimit   sharedConfig.RateLimitConfig   `mapstructure:"ratelimit"`
	Logger      sharedConfig.LoggerConfig      `mapstructure:"logger"`
	App         sharedConfig.AppConfig         `mapstructure:"app"`
	Cache       sharedConfig.CacheConfig       `mapstructure:"cache"`
	Maintenance sharedConfig.MaintenanceConfig `mapstructure:"maintenance"`
	Warehouse   sharedConfig.WarehouseConfig   `mapstructure:"warehouse"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables.
func Load(env string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	viper.SetEnvPrefix("GDELTNEWS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus env vars are enough to run.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		viper.Set("server.mode", env)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// setDefaults sets default configuration values.
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.request_timeout_seconds", 25)
	viper.SetDefault("server.max_in_flight", 64)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.username", "root")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "gdeltnews_dev")
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.conn_max_lifetime", 60)

	// Redis defaults (optional IP rate limiting)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.requests_per_minute", 120)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	// App defaults
	viper.SetDefault("app.timezone", "UTC")

	// Cache defaults
	viper.SetDefault("cache.retention_days", 7)
	viper.SetDefault("cache.expected_per_day", 100)
	viper.SetDefault("cache.coverage_ratio", 0.8)
	viper.SetDefault("cache.today_ttl_seconds", 900)
	viper.SetDefault("cache.historical_fanout", 4)
	viper.SetDefault("cache.max_days_back", 30)
	viper.SetDefault("cache.default_country", "CH")

	// Maintenance defaults
	viper.SetDefault("maintenance.hour", 0)
	viper.SetDefault("maintenance.minute", 0)
	viper.SetDefault("maintenance.warmup_countries",
		[]string{"US", "CH", "GM", "FR", "UK", "IT", "JA", "CA", "AS", "SP"})
	viper.SetDefault("maintenance.warm_today", false)

	// Warehouse defaults
	viper.SetDefault("warehouse.project_id", "")
	viper.SetDefault("warehouse.dataset", "gdelt-bq.gdeltv2")
	viper.SetDefault("warehouse.monthly_budget_bytes", int64(1)<<40) // 1 TiB
	viper.SetDefault("warehouse.default_query_bytes", int64(4)<<30)  // 4 GiB
}
