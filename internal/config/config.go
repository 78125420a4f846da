package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	HTTPAddr       string `mapstructure:"http_addr"`
	SourcesFile    string `mapstructure:"sources_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`
	SQLitePath  string `mapstructure:"sqlite_path"`

	YouTubeAPIKey string `mapstructure:"youtube_api_key"`

	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	RefreshBaseURL        string        `mapstructure:"refresh_base_url"`
	RefreshTimeoutSeconds int64         `mapstructure:"refresh_timeout_seconds"`
	RefreshTimeout        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and .env files.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "n8n-workflow-popularity")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8000")
	v.SetDefault("sources_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/popularity.db")
	v.SetDefault("sqlite_path", "./data/popularity.sqlite")
	v.SetDefault("youtube_api_key", "")
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("refresh_base_url", "http://localhost:8000")
	v.SetDefault("refresh_timeout_seconds", 600)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.RefreshTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid refresh_timeout_seconds (must be positive seconds)")
	}
	cfg.RefreshTimeout = time.Duration(cfg.RefreshTimeoutSeconds) * time.Second

	cfg.StorageType = strings.ToLower(strings.TrimSpace(cfg.StorageType))
	cfg.RefreshBaseURL = strings.TrimRight(strings.TrimSpace(cfg.RefreshBaseURL), "/")
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return nil, fmt.Errorf("http_addr must not be empty")
	}

	return &cfg, nil
}
