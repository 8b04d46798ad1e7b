package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Push transports selectable with TTT_PUSH_MODE.
const (
	PushWS    = "ws"
	PushRedis = "redis"
	PushPoll  = "poll"
	PushNone  = "none"
)

type AppConfig struct {
	APIBaseURL string `yaml:"api-base-url" env:"TTT_API_BASE_URL"`
	WSURL      string `yaml:"ws-url" env:"TTT_WS_URL"`

	PushMode     string        `yaml:"push-mode" env:"TTT_PUSH_MODE" env-default:"ws"`
	PollInterval time.Duration `yaml:"poll-interval" env:"TTT_POLL_INTERVAL" env-default:"2s"`

	RedisURL    string `yaml:"redis-url" env:"REDIS_URL"`
	DatabaseURL string `yaml:"database-url" env:"DATABASE_URL"`

	Username string `yaml:"username" env:"TTT_USERNAME"`
	Password string `yaml:"password" env:"TTT_PASSWORD"`

	HTTPTimeout         time.Duration `yaml:"http-timeout" env:"TTT_HTTP_TIMEOUT" env-default:"10s"`
	HTTPRetry           int           `yaml:"http-retry" env:"TTT_HTTP_RETRY" env-default:"3"`
	WSReconnectAttempts int           `yaml:"ws-reconnect-attempts" env:"TTT_WS_RECONNECT_ATTEMPTS" env-default:"5"`

	MessagesDir string `yaml:"messages-dir" env:"TTT_MESSAGES_DIR"`
	BoardPNG    string `yaml:"board-png" env:"TTT_BOARD_PNG"`
}

// Load reads the yaml file named by TTT_CONFIG when set, then the environment on top.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if path := strings.TrimSpace(os.Getenv("TTT_CONFIG")); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() error {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.WSURL = strings.TrimRight(strings.TrimSpace(c.WSURL), "/")
	c.PushMode = strings.ToLower(strings.TrimSpace(c.PushMode))
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.Username = strings.TrimSpace(c.Username)
	c.MessagesDir = strings.TrimSpace(c.MessagesDir)
	c.BoardPNG = strings.TrimSpace(c.BoardPNG)

	if c.APIBaseURL == "" {
		return errors.New("TTT_API_BASE_URL is required")
	}
	if c.WSURL == "" {
		ws, err := DeriveWSURL(c.APIBaseURL)
		if err != nil {
			return err
		}
		c.WSURL = ws
	}
	switch c.PushMode {
	case "":
		c.PushMode = PushWS
	case PushWS, PushPoll, PushNone:
	case PushRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when TTT_PUSH_MODE=redis")
		}
	default:
		return fmt.Errorf("unknown TTT_PUSH_MODE %q", c.PushMode)
	}
	if c.HTTPRetry < 1 {
		c.HTTPRetry = 1
	}
	return nil
}

// DeriveWSURL maps http(s)://host to ws(s)://host.
func DeriveWSURL(apiBase string) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("parse TTT_API_BASE_URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("TTT_API_BASE_URL must be http or https, got %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), nil
}

// HasCredentials reports whether the client should log in before playing.
func (c *AppConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}
