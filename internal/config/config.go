package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	HTTPServerAddress string        `mapstructure:"HTTP_SERVER_ADDRESS"`
	StorageBackend    string        `mapstructure:"STORAGE_BACKEND"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	RedisAddress      string        `mapstructure:"REDIS_ADDRESS"`
	StoragePrefix     string        `mapstructure:"STORAGE_PREFIX"`
	StorageTimeout    time.Duration `mapstructure:"STORAGE_TIMEOUT"`
	ShopAPIURL        string        `mapstructure:"SHOP_API_URL"`
	ShopTimeout       time.Duration `mapstructure:"SHOP_TIMEOUT"`
	DefaultSocketURL  string        `mapstructure:"DEFAULT_SOCKET_URL"`
	DefaultCurrency   string        `mapstructure:"DEFAULT_CURRENCY"`
	DefaultLocale     string        `mapstructure:"DEFAULT_LOCALE"`
	DialTimeout       time.Duration `mapstructure:"DIAL_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"WRITE_TIMEOUT"`
	LogDev            bool          `mapstructure:"LOG_DEV"`
}

var defaults = map[string]any{
	"HTTP_SERVER_ADDRESS": "0.0.0.0:8080",
	"STORAGE_BACKEND":     BackendMemory,
	"DATABASE_URL":        "",
	"REDIS_ADDRESS":       "",
	"STORAGE_PREFIX":      "hobuy",
	"STORAGE_TIMEOUT":     "2s",
	"SHOP_API_URL":        "",
	"SHOP_TIMEOUT":        "10s",
	"DEFAULT_SOCKET_URL":  "",
	"DEFAULT_CURRENCY":    "USD",
	"DEFAULT_LOCALE":      "en",
	"DIAL_TIMEOUT":        "5s",
	"WRITE_TIMEOUT":       "3s",
	"LOG_DEV":             false,
}

// Load reads envPath into the environment when it exists, then the environment
// into a Config. Variables already set in the environment win over the file.
func Load(envPath string) (Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendRedis:
		if cfg.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for the redis backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND %q is not one of memory, postgres, redis", cfg.StorageBackend)
	}

	if cfg.ShopAPIURL != "" {
		if _, err := url.ParseRequestURI(cfg.ShopAPIURL); err != nil {
			return fmt.Errorf("SHOP_API_URL: %w", err)
		}
	}
	if cfg.DialTimeout <= 0 || cfg.WriteTimeout <= 0 {
		return fmt.Errorf("DIAL_TIMEOUT and WRITE_TIMEOUT must be positive")
	}
	return nil
}
