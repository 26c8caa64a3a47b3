package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiBaseURL    string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiAPIVersion string `env:"GEMINI_API_VERSION" envDefault:"v1beta"`
	GeminiImageModel string `env:"GEMINI_IMAGE_MODEL" envDefault:"gemini-2.5-flash-image"`

	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`

	PreferIPv4 bool `env:"PREFER_IPV4" envDefault:"true"`

	MediaGroupDebounceMS int `env:"MEDIA_GROUP_DEBOUNCE_MS" envDefault:"1200"`
	MaxConcurrent        int `env:"MAX_CONCURRENT" envDefault:"4"`
	MaxHistory           int `env:"MAX_HISTORY" envDefault:"10"`
	RequestTimeoutSec    int `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"180"`
	HTTPTimeoutSec       int `env:"HTTP_TIMEOUT_SECONDS" envDefault:"180"`

	WebAddr     string `env:"WEB_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// Load reads .env (when present) and the process environment.
// GEMINI_API_KEY is the only key every entry point needs.
func Load() (Config, error) {
	_ = godotenv.Load()
	return parse()
}

// LoadBot is Load plus the Telegram token check.
func LoadBot() (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	if cfg.TelegramToken == "" {
		return Config{}, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return cfg, nil
}

func parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.GeminiBaseURL = strings.TrimSpace(cfg.GeminiBaseURL)
	cfg.GeminiAPIVersion = strings.TrimSpace(cfg.GeminiAPIVersion)
	cfg.GeminiImageModel = strings.TrimSpace(cfg.GeminiImageModel)

	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MaxHistory < 1 {
		cfg.MaxHistory = 1
	}
	if cfg.MediaGroupDebounceMS <= 0 {
		cfg.MediaGroupDebounceMS = 1200
	}
	if cfg.RequestTimeoutSec <= 0 {
		cfg.RequestTimeoutSec = 180
	}
	if cfg.HTTPTimeoutSec <= 0 {
		cfg.HTTPTimeoutSec = 180
	}
	if cfg.GeminiImageModel == "" {
		cfg.GeminiImageModel = "gemini-2.5-flash-image"
	}

	return cfg, nil
}

func (c Config) MediaGroupDebounce() time.Duration {
	return time.Duration(c.MediaGroupDebounceMS) * time.Millisecond
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}
