package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"Myriad"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisURL       string        `env:"REDIS_URL"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// TokenSecret signs access tokens. TokenExpiresIn is expressed in hours.
	TokenSecret     string        `env:"TOKEN_SECRET_KEY"`
	TokenExpiresIn  int           `env:"TOKEN_EXPIRES_IN"`
	TokenIssuer     string        `env:"TOKEN_ISSUER" envDefault:"myriad"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	OTPTTL          time.Duration `env:"OTP_TTL" envDefault:"10m"`
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"5"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`
	// MailFrom is the sender address used for OTP mails.
	MailFrom string `env:"MAIL_FROM" envDefault:"no-reply@myriad.social"`
}

// SMTPConfig holds outbound mail settings. An empty Host, allowed only in
// development, means mails are logged instead of sent.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("TOKEN_SECRET_KEY must be set")
	}
	if cfg.TokenExpiresIn <= 0 {
		return Config{}, fmt.Errorf("TOKEN_EXPIRES_IN must be a positive number of hours, got %d", cfg.TokenExpiresIn)
	}
	if cfg.RefreshTokenTTL <= 0 {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}
	if cfg.OTPTTL <= 0 {
		return Config{}, fmt.Errorf("OTP_TTL must be positive")
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.SMTP.Host == "" {
			return Config{}, fmt.Errorf("SMTP_HOST must be set")
		}
	}

	return cfg, nil
}

// AccessTokenTTL converts TOKEN_EXPIRES_IN to a duration.
func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.TokenExpiresIn) * time.Hour
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
