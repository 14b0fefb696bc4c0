// internal/config/config.go
//
// Service configuration, read from the environment (optionally seeded from a
// .env file in development). Parsed with github.com/caarlos0/env struct tags.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds everything main needs to wire the service.
type Config struct {
	Port     int    `env:"PORT" envDefault:"5175"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Env      string `env:"NODE_ENV" envDefault:"development"`

	// Database file for users, game history, daily results and the sqlite kv.
	DBPath string `env:"DB_PATH" envDefault:"./data/numguess.db"`

	// High-score backend: sqlite | redis | memory.
	StoreBackend   string `env:"STORE_BACKEND" envDefault:"sqlite"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisRetries   uint64 `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisNamespace string `env:"REDIS_NAMESPACE" envDefault:"numguess"`

	ProfilesFile string `env:"PROFILES_FILE"`

	JWTSecret     string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpireDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName    string `env:"COOKIE_NAME" envDefault:"numguess_token"`
	ClientOrigin  string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	DailySalt string `env:"DAILY_SALT" envDefault:"local_dev_salt"`

	SessionIdle time.Duration `env:"SESSION_IDLE" envDefault:"2h"`

	BotToken string `env:"BOT_TOKEN"`
	BotDebug bool   `env:"BOT_DEBUG" envDefault:"false"`
}

// Load reads .env if present, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded environment from .env")
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration with every default applied and nothing
// read from the process environment.
func Default() *Config {
	cfg := &Config{}
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d (must be 1-65535)", c.Port)
	}
	switch strings.ToLower(c.StoreBackend) {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("invalid STORE_BACKEND: %q (sqlite, redis or memory)", c.StoreBackend)
	}
	if c.JWTExpireDays < 1 {
		return fmt.Errorf("invalid JWT_EXPIRES_DAYS: %d", c.JWTExpireDays)
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("invalid SESSION_IDLE: %s", c.SessionIdle)
	}
	return nil
}

// Production reports whether cookies should be Secure/SameSite=None.
func (c *Config) Production() bool { return c.Env == "production" }
