package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Activity log commit modes.
const (
	ActivityLogTransactional = "transactional"
	ActivityLogBestEffort    = "best_effort"
)

// Config keeps runtime settings for the API server.
type Config struct {
	DBDriver           string
	DatabaseURL        string
	HTTPAddr           string
	GinMode            string
	ActivityLogMode    string
	TokenTTL           time.Duration
	TokenPurgeInterval time.Duration
	TelegramToken      string
	DigestTime         string
	AuditEnabled       bool
}

// NotificationsEnabled reports whether a Telegram token was configured.
func (c Config) NotificationsEnabled() bool {
	return c.TelegramToken != ""
}

// Load reads configuration from .env, an optional config.yaml and
// environment variables, with sane defaults.
func Load() (Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("database_url", "taskflow.db")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("activity_log_mode", ActivityLogTransactional)
	v.SetDefault("token_ttl_hours", 720)
	v.SetDefault("token_purge_interval_minutes", 60)
	v.SetDefault("telegram_token", "")
	v.SetDefault("digest_time", "08:00")
	v.SetDefault("audit_enabled", true)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		DBDriver:           strings.ToLower(strings.TrimSpace(v.GetString("db_driver"))),
		DatabaseURL:        strings.TrimSpace(v.GetString("database_url")),
		HTTPAddr:           strings.TrimSpace(v.GetString("http_addr")),
		GinMode:            strings.TrimSpace(v.GetString("gin_mode")),
		ActivityLogMode:    strings.ToLower(strings.TrimSpace(v.GetString("activity_log_mode"))),
		TokenTTL:           time.Duration(v.GetInt("token_ttl_hours")) * time.Hour,
		TokenPurgeInterval: time.Duration(v.GetInt("token_purge_interval_minutes")) * time.Minute,
		TelegramToken:      strings.TrimSpace(v.GetString("telegram_token")),
		DigestTime:         strings.TrimSpace(v.GetString("digest_time")),
		AuditEnabled:       v.GetBool("audit_enabled"),
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return cfg, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskflow.db"
	}

	switch cfg.ActivityLogMode {
	case ActivityLogTransactional, ActivityLogBestEffort:
	default:
		return cfg, fmt.Errorf("unsupported ACTIVITY_LOG_MODE %q", cfg.ActivityLogMode)
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 720 * time.Hour
	}

	return cfg, nil
}
