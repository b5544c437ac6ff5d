package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                  int    `env:"PORT" envDefault:"8080"`
	DatabaseURL           string `env:"DATABASE_URL,required"`
	RedisURL              string `env:"REDIS_URL,required"`
	TelegramBotToken      string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID        string `env:"TELEGRAM_CHAT_ID"`
	TelegramAPIBaseURL    string `env:"TELEGRAM_API_BASE_URL" envDefault:"https://api.telegram.org"`
	EntryCode             string `env:"ENTRY_CODE"`
	NotifyRateLimitPerMin int    `env:"NOTIFY_RATE_LIMIT_PER_MIN" envDefault:"10"`
	AMQPURL               string `env:"AMQP_URL"`
	AMQPExchange          string `env:"AMQP_EXCHANGE" envDefault:"signal.audit"`
	StaticDir             string `env:"STATIC_DIR" envDefault:"static"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TelegramConfigured reports whether both relay credentials are present.
func (c *Config) TelegramConfigured() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func (c *Config) Validate(isProduction bool) error {
	if c.NotifyRateLimitPerMin <= 0 {
		return fmt.Errorf("NOTIFY_RATE_LIMIT_PER_MIN must be positive")
	}
	if _, err := url.ParseRequestURI(c.TelegramAPIBaseURL); err != nil {
		return fmt.Errorf("TELEGRAM_API_BASE_URL is not a valid URL: %w", err)
	}

	if !c.TelegramConfigured() {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is empty: /api/notify will report not configured")
	}

	if isProduction {
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.EntryCode != "" && len(c.EntryCode) < 6 {
			log.Warn().Msg("ENTRY_CODE is shorter than 6 characters in production")
		}
	}

	return nil
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.TelegramAPIBaseURL = strings.TrimRight(cfg.TelegramAPIBaseURL, "/")
	return &cfg, nil
}
