package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	StickerDir     string `envconfig:"STICKER_DIR" default:"./data/stickers"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	PageCount    int    `envconfig:"PAGE_COUNT" default:"24"`
	MaxSnapshots int    `envconfig:"MAX_SNAPSHOTS" default:"50"`
	HistoryMode  string `envconfig:"HISTORY_MODE" default:"commands"`

	FlipVelocityThreshold float64       `envconfig:"FLIP_VELOCITY_THRESHOLD" default:"800"`
	FlipProgressThreshold float64       `envconfig:"FLIP_PROGRESS_THRESHOLD" default:"0.499"`
	FlipCompleteDuration  time.Duration `envconfig:"FLIP_COMPLETE_DURATION" default:"350ms"`
	FlipCancelDuration    time.Duration `envconfig:"FLIP_CANCEL_DURATION" default:"250ms"`
	LayoutBaseOffset      float64       `envconfig:"LAYOUT_BASE_OFFSET" default:"4"`

	MDNSEnabled  bool   `envconfig:"MDNS_ENABLED" default:"false"`
	MDNSInstance string `envconfig:"MDNS_INSTANCE" default:"inkbook"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.PageCount < 2 {
		return nil, fmt.Errorf("PAGE_COUNT must be at least 2, got %d", cfg.PageCount)
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into its entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// OriginPatterns strips the scheme from each origin, as websocket.Accept
// expects host patterns.
func (c *Config) OriginPatterns() []string {
	var out []string
	for _, o := range c.Origins() {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}

func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
