package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the client configuration, loaded from a .env file and
// environment variables.
type Config struct {
	APIBaseURL      string `mapstructure:"API_BASE_URL"`
	WSBaseURL       string `mapstructure:"WS_BASE_URL"`
	CredentialsFile string `mapstructure:"CREDENTIALS_FILE"`
	HTTPTimeoutSec  int    `mapstructure:"HTTP_TIMEOUT"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// Load reads configuration from .env and the environment. WS_BASE_URL is
// derived from the API base when unset; the credentials file defaults to the
// user config dir.
func Load() (Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.SetDefault("API_BASE_URL", "http://localhost:8000")
	v.SetDefault("WS_BASE_URL", "")
	v.SetDefault("CREDENTIALS_FILE", "")
	v.SetDefault("HTTP_TIMEOUT", 15)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read .env: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.WSBaseURL == "" {
		cfg.WSBaseURL = deriveWSBase(cfg.APIBaseURL)
	}
	if cfg.CredentialsFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve config dir: %w", err)
		}
		cfg.CredentialsFile = filepath.Join(dir, "gridplay", "credentials.json")
	}
	return cfg, nil
}

func deriveWSBase(apiBase string) string {
	switch {
	case strings.HasPrefix(apiBase, "https://"):
		return "wss://" + strings.TrimPrefix(apiBase, "https://")
	case strings.HasPrefix(apiBase, "http://"):
		return "ws://" + strings.TrimPrefix(apiBase, "http://")
	default:
		return apiBase
	}
}
