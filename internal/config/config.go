package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string        `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	DatabaseURL   string        `envconfig:"REMINDER_BOT_DB" default:"reminders.db"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	TickInterval  time.Duration `envconfig:"DAILY_TICK_INTERVAL" default:"60s"`
	SendRate      float64       `envconfig:"SEND_RATE" default:"25"` // messages per second
	SendTimeout   time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`
	EventBuffer   int           `envconfig:"EVENT_BUFFER" default:"64"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.TickInterval < time.Second {
		return cfg, fmt.Errorf("DAILY_TICK_INTERVAL must be at least 1s, got %s", cfg.TickInterval)
	}
	if cfg.SendRate <= 0 {
		return cfg, fmt.Errorf("SEND_RATE must be positive, got %v", cfg.SendRate)
	}
	return cfg, nil
}
