// Package config loads the dashboard's configuration from the environment.
//
// Values come from real environment variables, optionally seeded from a
// .env file in the working directory (development). Parsing is declarative
// through struct tags; Sanitize then clamps out-of-range values back to
// their defaults, and Validate rejects what cannot be defaulted.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinJWTSecretLen mirrors the token service's requirement.
const MinJWTSecretLen = 16

const (
	defaultPort            = 8080
	defaultSessionTTL      = 12 * time.Hour
	defaultProviderTimeout = 10 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// Config is the whole application configuration.
type Config struct {
	HTTP      HTTPConfig
	DBPath    string `env:"DB_PATH" envDefault:"data/dashboard.db"`
	Auth      AuthConfig
	Log       LogConfig
	Providers ProvidersConfig
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// AuthConfig configures the session cookie.
type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"12h"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // text | json
}

// ProvidersConfig holds API keys and endpoints of the remote data sources.
// Base URLs are overridable so tests and staging can point at fakes.
type ProvidersConfig struct {
	Timeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	OpenWeatherKey string `env:"OPENWEATHER_API_KEY"`
	OpenWeatherURL string `env:"OPENWEATHER_BASE_URL" envDefault:"https://api.openweathermap.org"`

	NewsAPIKey string `env:"NEWSAPI_KEY"`
	NewsAPIURL string `env:"NEWSAPI_BASE_URL" envDefault:"https://newsapi.org"`

	AlphaVantageKey string `env:"ALPHAVANTAGE_API_KEY"`
	AlphaVantageURL string `env:"ALPHAVANTAGE_BASE_URL" envDefault:"https://www.alphavantage.co"`

	// GitHubToken is optional; without it GitHub allows 60 requests/hour.
	GitHubToken string `env:"GITHUB_TOKEN"`
	GitHubURL   string `env:"GITHUB_BASE_URL" envDefault:"https://api.github.com"`
}

// MissingKeys names the providers that have no API key configured.
func (p ProvidersConfig) MissingKeys() []string {
	var missing []string
	if p.OpenWeatherKey == "" {
		missing = append(missing, "OPENWEATHER_API_KEY")
	}
	if p.NewsAPIKey == "" {
		missing = append(missing, "NEWSAPI_KEY")
	}
	if p.AlphaVantageKey == "" {
		missing = append(missing, "ALPHAVANTAGE_API_KEY")
	}
	return missing
}

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Sanitize applies guardrails to values that have a sane default.
func (c *Config) Sanitize() {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		c.HTTP.Port = defaultPort
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = defaultSessionTTL
	}
	if c.Providers.Timeout <= 0 {
		c.Providers.Timeout = defaultProviderTimeout
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format != "json" {
		c.Log.Format = "text"
	}
}

// Validate rejects configuration the server cannot run with.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < MinJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLen)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
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

// NewLogger builds the process logger: JSON for log shippers, text for a
// terminal.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
