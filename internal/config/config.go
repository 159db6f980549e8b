package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the service reads from the environment.
// JWT_SECRET and DATABASE_URL have no defaults: startup fails without them.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`

	Port      string `env:"PORT" envDefault:"8080"`
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	SentryDSN string `env:"SENTRY_DSN"`

	TokenTTL time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`

	UploadDir       string        `env:"IMAGE_UPLOAD_DIR" envDefault:"uploads"`
	UploadRetention time.Duration `env:"UPLOAD_RETENTION" envDefault:"336h"`
	CronSecret      string        `env:"CRON_SECRET"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"10m"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}
