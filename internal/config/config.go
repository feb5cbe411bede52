package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ctrl-sourav/SkyCast/internal/geo"
)

type Config struct {
	Port            string            `mapstructure:"port"`
	LogLevel        string            `mapstructure:"log_level"`
	OpenWeather     OpenWeatherConfig `mapstructure:"openweather"`
	DisplayTimezone string            `mapstructure:"display_timezone"`
	Geolocation     GeolocationConfig `mapstructure:"geolocation"`
	Redis           RedisConfig       `mapstructure:"redis"`
	RateLimit       RateLimitConfig   `mapstructure:"rate_limit"`
	History         HistoryConfig     `mapstructure:"history"`
	MQTT            MQTTConfig        `mapstructure:"mqtt"`
	Refresh         RefreshConfig     `mapstructure:"refresh"`
	OTLPEndpoint    string            `mapstructure:"otlp_endpoint"`

	CacheTTL time.Duration `mapstructure:"-"`
}

type OpenWeatherConfig struct {
	APIKey  string  `mapstructure:"api_key"`
	BaseURL string  `mapstructure:"base_url"`
	GeoURL  string  `mapstructure:"geo_url"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type GeolocationConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Home    *geo.Coordinates `mapstructure:"-"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	RPS     int  `mapstructure:"rps"`
	Burst   int  `mapstructure:"burst"`
}

type HistoryConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	SQLitePath    string   `mapstructure:"sqlite_path"`
	RetentionDays int      `mapstructure:"retention_days"`
	Postgres      DBConfig `mapstructure:"postgres"`
}

type DBConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
}

type MQTTConfig struct {
	BrokerURL   string `mapstructure:"broker_url"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type RefreshConfig struct {
	Cron      string `mapstructure:"cron"`
	Locations string `mapstructure:"locations"`
}

var envBindings = map[string][]string{
	"port":                      {"PORT", "WEATHER_SERVICE_PORT"},
	"log_level":                 {"LOG_LEVEL"},
	"openweather.api_key":       {"OPENWEATHER_API_KEY"},
	"openweather.base_url":      {"OPENWEATHER_BASE_URL"},
	"openweather.geo_url":       {"OPENWEATHER_GEO_URL"},
	"openweather.rps":           {"OPENWEATHER_RPS"},
	"openweather.burst":         {"OPENWEATHER_BURST"},
	"cache_ttl_minutes":         {"CACHE_TTL_MINUTES", "WEATHER_CACHE_TTL_MINUTES"},
	"cache_ttl":                 {"WEATHER_CACHE_TTL"},
	"display_timezone":          {"DISPLAY_TIMEZONE"},
	"geolocation.enabled":       {"GEOLOCATION_ENABLED"},
	"geolocation.home_lat":      {"HOME_LAT"},
	"geolocation.home_lon":      {"HOME_LON"},
	"redis.addr":                {"REDIS_ADDR"},
	"redis.password":            {"REDIS_PASSWORD"},
	"redis.db":                  {"REDIS_DB"},
	"rate_limit.enabled":        {"RATE_LIMIT_ENABLED"},
	"rate_limit.rps":            {"RATE_LIMIT_RPS"},
	"rate_limit.burst":          {"RATE_LIMIT_BURST"},
	"history.enabled":           {"HISTORY_ENABLED"},
	"history.sqlite_path":       {"HISTORY_DB_PATH"},
	"history.retention_days":    {"HISTORY_RETENTION_DAYS"},
	"history.postgres.user":     {"POSTGRES_USER"},
	"history.postgres.password": {"POSTGRES_PASSWORD"},
	"history.postgres.db":       {"POSTGRES_DB"},
	"history.postgres.host":     {"POSTGRES_HOST"},
	"history.postgres.port":     {"POSTGRES_PORT"},
	"history.postgres.sslmode":  {"POSTGRES_SSLMODE"},
	"mqtt.broker_url":           {"MQTT_BROKER_URL"},
	"mqtt.client_id":            {"MQTT_CLIENT_ID"},
	"mqtt.topic_prefix":         {"MQTT_TOPIC_PREFIX"},
	"refresh.cron":              {"REFRESH_CRON"},
	"refresh.locations":         {"REFRESH_LOCATIONS"},
	"otlp_endpoint":             {"OTEL_EXPORTER_OTLP_ENDPOINT"},
}

// Load reads defaults, then the optional YAML file at path, then the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("port", "8095")
	v.SetDefault("log_level", "info")
	v.SetDefault("openweather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("openweather.geo_url", "https://api.openweathermap.org/geo/1.0")
	v.SetDefault("openweather.rps", 1.0)
	v.SetDefault("openweather.burst", 10)
	v.SetDefault("display_timezone", "UTC")
	v.SetDefault("geolocation.enabled", true)
	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.sqlite_path", "skycast.db")
	v.SetDefault("history.retention_days", 30)
	v.SetDefault("history.postgres.sslmode", "disable")
	v.SetDefault("mqtt.client_id", "skycast")
	v.SetDefault("mqtt.topic_prefix", "skycast/dashboard")
	v.SetDefault("refresh.cron", "*/30 * * * *")

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.OpenWeather.BaseURL = strings.TrimRight(cfg.OpenWeather.BaseURL, "/")
	cfg.OpenWeather.GeoURL = strings.TrimRight(cfg.OpenWeather.GeoURL, "/")
	cfg.CacheTTL = cacheTTL(v)

	if v.IsSet("geolocation.home_lat") && v.IsSet("geolocation.home_lon") {
		home := geo.Coordinates{Lat: v.GetFloat64("geolocation.home_lat"), Lon: v.GetFloat64("geolocation.home_lon")}
		if err := home.Validate(); err != nil {
			return nil, fmt.Errorf("home location: %w", err)
		}
		cfg.Geolocation.Home = &home
	}

	slog.Info("skycast config loaded", "port", cfg.Port, "cache_ttl", cfg.CacheTTL, "redis", cfg.Redis.Addr != "", "mqtt", cfg.MQTT.BrokerURL != "")
	return &cfg, nil
}

func cacheTTL(v *viper.Viper) time.Duration {
	if m := v.GetInt("cache_ttl_minutes"); m > 0 {
		return time.Duration(m) * time.Minute
	}
	if d := v.GetDuration("cache_ttl"); d > 0 {
		return d
	}
	return 15 * time.Minute
}

func (c *Config) DisplayLocation() (*time.Location, error) {
	return time.LoadLocation(c.DisplayTimezone)
}
