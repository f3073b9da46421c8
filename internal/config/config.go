package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Call engine sidecars, one per assistant account
	EngineEndpoints []string `env:"ENGINE_ENDPOINTS,required" envSeparator:","`
	EngineToken     string   `env:"ENGINE_TOKEN"`

	// Media
	DownloadsDir           string        `env:"DOWNLOADS_DIR" envDefault:"downloads"`
	DownloadTimeout        time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"3m"`
	MaxConcurrentDownloads int           `env:"MAX_CONCURRENT_DOWNLOADS" envDefault:"2"`
	MaxQueue               int           `env:"MAX_QUEUE" envDefault:"10"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Background jobs
	ReaperInterval    time.Duration `env:"REAPER_INTERVAL" envDefault:"40s"`
	AutoLeave         bool          `env:"AUTO_LEAVE" envDefault:"false"`
	AutoLeaveSchedule string        `env:"AUTO_LEAVE_SCHEDULE" envDefault:"0 3 * * *"`

	// Observability
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`
	RateLimitPerMinute int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`

	// Telegram logging
	LogTelegramChatID int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError     int   `env:"LOG_TOPIC_ERROR"`
	LogTopicPlayback  int   `env:"LOG_TOPIC_PLAYBACK"`
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MaxQueue <= 0 {
		return nil, fmt.Errorf("parse config: MAX_QUEUE must be positive, got %d", cfg.MaxQueue)
	}
	if cfg.MaxConcurrentDownloads <= 0 {
		cfg.MaxConcurrentDownloads = 1
	}
	return cfg, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
