package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "voltswap/libs/config"
)

// Config defines swap-service configuration. Durations are env-only and use
// Go duration strings ("45s", "2h").
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"SWAP_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN          string `yaml:"dsn" env:"SWAP_POSTGRES_DSN"`
		MaxOpenConns int    `yaml:"maxOpenConns" env:"SWAP_POSTGRES_MAX_CONNS"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"SWAP_REDIS_ADDR"`
		Password string `yaml:"password" env:"SWAP_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"SWAP_REDIS_DB"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret string        `yaml:"jwtSecret" env:"SWAP_JWT_SECRET"`
		TokenTTL  time.Duration `yaml:"-" env:"SWAP_TOKEN_TTL"`
	} `yaml:"auth"`
	WebSocket struct {
		PingInterval time.Duration `yaml:"-" env:"SWAP_WS_PING_INTERVAL"`
		WriteTimeout time.Duration `yaml:"-" env:"SWAP_WS_WRITE_TIMEOUT"`
	} `yaml:"websocket"`
	Payments struct {
		EventsChannel     string        `yaml:"eventsChannel" env:"SWAP_PAYMENTS_CHANNEL"`
		ReconnectAttempts int           `yaml:"reconnectAttempts" env:"SWAP_PAYMENTS_RECONNECT_ATTEMPTS"`
		ReconnectBackoff  time.Duration `yaml:"-" env:"SWAP_PAYMENTS_RECONNECT_BACKOFF"`
	} `yaml:"payments"`
	Session struct {
		CacheTTL time.Duration `yaml:"-" env:"SWAP_SESSION_CACHE_TTL"`
	} `yaml:"session"`
}

// Load uses shared config loader and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Auth.TokenTTL = time.Hour
	cfg.WebSocket.PingInterval = 30 * time.Second
	cfg.WebSocket.WriteTimeout = 15 * time.Second
	cfg.Payments.EventsChannel = "payments:events"
	cfg.Payments.ReconnectAttempts = 5
	cfg.Payments.ReconnectBackoff = 2 * time.Second
	cfg.Session.CacheTTL = 2 * time.Hour

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database DSN is required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr is required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret is required")
	}

	return cfg, nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// TokenTTL returns JWT lifetime.
func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTL <= 0 {
		return time.Hour
	}
	return c.Auth.TokenTTL
}

// PingInterval returns websocket ping interval.
func (c *Config) PingInterval() time.Duration {
	if c.WebSocket.PingInterval <= 0 {
		return 30 * time.Second
	}
	return c.WebSocket.PingInterval
}

// WriteTimeout returns websocket write timeout.
func (c *Config) WriteTimeout() time.Duration {
	if c.WebSocket.WriteTimeout <= 0 {
		return 15 * time.Second
	}
	return c.WebSocket.WriteTimeout
}

// ReconnectBackoff returns the fixed delay between subscription retries.
func (c *Config) ReconnectBackoff() time.Duration {
	if c.Payments.ReconnectBackoff <= 0 {
		return 2 * time.Second
	}
	return c.Payments.ReconnectBackoff
}

// SessionCacheTTL returns how long mirrored sessions live in redis.
func (c *Config) SessionCacheTTL() time.Duration {
	if c.Session.CacheTTL <= 0 {
		return 2 * time.Hour
	}
	return c.Session.CacheTTL
}
