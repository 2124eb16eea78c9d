package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                string        `mapstructure:"ENV"`
	Port               string        `mapstructure:"PORT"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	AdminKey           string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed        string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	GeocoderURL        string        `mapstructure:"GEOCODER_URL"`
	GeocoderFallback   string        `mapstructure:"GEOCODER_FALLBACK_URL"`
	GeocodeTTL         time.Duration `mapstructure:"GEOCODE_TTL"`
	SearchRateLimit    int           `mapstructure:"SEARCH_RATE_LIMIT"`
	SearchRateWindow   time.Duration `mapstructure:"SEARCH_RATE_WINDOW"`
	DelegateRateLimit  int           `mapstructure:"DELEGATE_RATE_LIMIT"`
	DelegateRateWindow time.Duration `mapstructure:"DELEGATE_RATE_WINDOW"`
	AnalyticsQueueSize int           `mapstructure:"ANALYTICS_QUEUE_SIZE"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("GEOCODE_TTL", "2160h") // 90 days
	v.SetDefault("SEARCH_RATE_LIMIT", 20)
	v.SetDefault("SEARCH_RATE_WINDOW", "60s")
	v.SetDefault("DELEGATE_RATE_LIMIT", 10)
	v.SetDefault("DELEGATE_RATE_WINDOW", "60s")
	v.SetDefault("ANALYTICS_QUEUE_SIZE", 256)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
