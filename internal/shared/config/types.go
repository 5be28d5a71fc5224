package config

import "fmt"

type ServerConfig struct {
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	Mode                  string `mapstructure:"mode"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
	MaxInFlight           int    `mapstructure:"max_in_flight"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type AppConfig struct {
	// Timezone is the zone used for day-boundary calculations. It must agree
	// with the wall clock the warehouse uses for date_added, otherwise
	// coverage checks systematically miss rows near midnight.
	Timezone string `mapstructure:"timezone"`
}

type CacheConfig struct {
	RetentionDays    int     `mapstructure:"retention_days"`
	ExpectedPerDay   int     `mapstructure:"expected_per_day"`
	CoverageRatio    float64 `mapstructure:"coverage_ratio"`
	TodayTTLSeconds  int     `mapstructure:"today_ttl_seconds"`
	HistoricalFanout int     `mapstructure:"historical_fanout"`
	MaxDaysBack      int     `mapstructure:"max_days_back"`
	DefaultCountry   string  `mapstructure:"default_country"`
}

type MaintenanceConfig struct {
	Hour            int      `mapstructure:"hour"`
	Minute          int      `mapstructure:"minute"`
	WarmupCountries []string `mapstructure:"warmup_countries"`
	WarmToday       bool     `mapstructure:"warm_today"`
}

type WarehouseConfig struct {
	ProjectID          string `mapstructure:"project_id"`
	Dataset            string `mapstructure:"dataset"`
	MonthlyBudgetBytes int64  `mapstructure:"monthly_budget_bytes"`
	DefaultQueryBytes  int64  `mapstructure:"default_query_bytes"`
}
