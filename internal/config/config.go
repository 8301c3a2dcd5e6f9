package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"mine-game-backend/internal/game"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	// Empty RedisURL keeps sessions in process memory.
	RedisURL  string `env:"REDIS_URL"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	StaleSessionAge time.Duration `env:"STALE_SESSION_AGE" envDefault:"10m"`
	RevealRateLimit int           `env:"REVEAL_RATE_LIMIT" envDefault:"120"`

	DefaultMineCount int           `env:"DEFAULT_MINE_COUNT" envDefault:"3"`
	LossCueDelay     time.Duration `env:"LOSS_CUE_DELAY" envDefault:"500ms"`
	CueVolume        float64       `env:"CUE_VOLUME" envDefault:"1.0"`
	CueSampleRate    int           `env:"CUE_SAMPLE_RATE" envDefault:"44100"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

const devJWTSecret = "dev-only-insecure-secret"

// Load reads the configuration from the environment. Call godotenv.Load
// first to pick up a .env file.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if !game.ValidMineCount(c.DefaultMineCount) {
		errs = append(errs, fmt.Errorf("DEFAULT_MINE_COUNT must be 3, 5 or 10, got %d", c.DefaultMineCount))
	}
	if c.LossCueDelay < 0 {
		errs = append(errs, fmt.Errorf("LOSS_CUE_DELAY must not be negative, got %s", c.LossCueDelay))
	}
	if c.CueVolume < 0 || c.CueVolume > 1 {
		errs = append(errs, fmt.Errorf("CUE_VOLUME must be between 0 and 1, got %g", c.CueVolume))
	}
	if c.CueSampleRate < 8000 || c.CueSampleRate > 192000 {
		errs = append(errs, fmt.Errorf("CUE_SAMPLE_RATE out of range: %d", c.CueSampleRate))
	}
	if c.RevealRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("REVEAL_RATE_LIMIT must be positive, got %d", c.RevealRateLimit))
	}
	if c.TokenTTL <= 0 || c.SessionTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL and SESSION_TTL must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
