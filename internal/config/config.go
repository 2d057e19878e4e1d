// internal/config/config.go
//
// Process configuration read from the environment (a .env file is loaded by
// main before Load runs).
//   - Defaults live in the struct tags.
//   - Validate rejects combinations the server cannot start with.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the server.
type Config struct {
	Port         string `env:"PORT" envDefault:"5175"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"json"` // json | console
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	DBType      string `env:"DB_TYPE" envDefault:"sqlite"` // sqlite | postgres | mysql | memory
	DBPath      string `env:"DB_PATH" envDefault:"./data/snaildle.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	AnswersFile string `env:"WORDS_ANSWERS_FILE"`
	AllowedFile string `env:"WORDS_ALLOWED_FILE"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	LockTimeout   time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`
	LockTTL       time.Duration `env:"LOCK_TTL" envDefault:"10s"`

	JWTSecret           string        `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiry           time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	APIClientID         string        `env:"API_CLIENT_ID" envDefault:"snaildle-bot"`
	APIClientSecretHash string        `env:"API_CLIENT_SECRET_HASH"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	StatsMaxGuesses     int           `env:"STATS_MAX_GUESSES" envDefault:"6"`
	StatsTopN           int           `env:"STATS_TOP_N" envDefault:"10"`
	OTelEndpoint        string        `env:"OTEL_ENDPOINT"`
	OTelServiceName     string        `env:"OTEL_SERVICE_NAME" envDefault:"snaildle"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AuthEnabled reports whether API routes require a bearer token.
func (c Config) AuthEnabled() bool {
	return c.APIClientSecretHash != ""
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.DBType) {
	case "sqlite", "sqlite3":
		if strings.TrimSpace(c.DBPath) == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case "postgres", "postgresql", "mysql":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for %s", c.DBType))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_TYPE %q", c.DBType))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unsupported LOG_FORMAT %q", c.LogFormat))
	}
	if c.LockTimeout <= 0 {
		errs = append(errs, errors.New("LOCK_TIMEOUT must be positive"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL must be positive"))
	}
	if c.JWTExpiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY must be positive"))
	}
	if c.AuthEnabled() && len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 bytes when auth is enabled"))
	}
	if c.StatsMaxGuesses < 1 {
		errs = append(errs, errors.New("STATS_MAX_GUESSES must be at least 1"))
	}
	if c.StatsTopN < 1 {
		errs = append(errs, errors.New("STATS_TOP_N must be at least 1"))
	}
	return errors.Join(errs...)
}
