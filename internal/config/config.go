// internal/config/config.go
//
// Process configuration, bound from the environment.
//
// Load order:
//   1. A .env file in the working directory, if present (development).
//   2. Environment variables, with the defaults in the struct tags.
//
// Secrets (JWT_SECRET, STATE_SECRET, API keys) are never logged; LogSummary
// prints whether they are set.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Generators.
const (
	GeneratorDeepSeek = "deepseek"
	GeneratorGemini   = "gemini"
	GeneratorFallback = "fallback"
)

const devJWTSecret = "dev_secret_change_me"

// Config is the full server configuration.
type Config struct {
	Port         string `envconfig:"PORT" default:"5175"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	Env          string `envconfig:"NODE_ENV" default:"development"`
	ClientOrigin string `envconfig:"CLIENT_ORIGIN" default:"http://localhost:5173"`

	JWTSecret      string `envconfig:"JWT_SECRET"`
	JWTExpiresDays int    `envconfig:"JWT_EXPIRES_DAYS" default:"180"`
	CookieName     string `envconfig:"COOKIE_NAME" default:"guess_player"`

	StoreBackend  string `envconfig:"STORE_BACKEND" default:"memory"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"./data/app.db"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	StateSecret   string `envconfig:"STATE_SECRET"`
	StateCompress bool   `envconfig:"STATE_COMPRESS" default:"false"`
	StateEncrypt  bool   `envconfig:"STATE_ENCRYPT" default:"false"`

	Generator           string        `envconfig:"GENERATOR" default:"deepseek"`
	DeepSeekAPIKey      string        `envconfig:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL     string        `envconfig:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com"`
	DeepSeekModel       string        `envconfig:"DEEPSEEK_MODEL" default:"deepseek-chat"`
	GeminiAPIKey        string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel         string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	GenerateTimeout     time.Duration `envconfig:"GENERATE_TIMEOUT" default:"60s"`
	FallbackEntriesFile string        `envconfig:"FALLBACK_ENTRIES_FILE"`

	RateLimit  int           `envconfig:"RATE_LIMIT" default:"10"`
	RateWindow time.Duration `envconfig:"RATE_WINDOW" default:"60s"`
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
	cfg.Generator = strings.ToLower(cfg.Generator)
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND: unknown backend %q", c.StoreBackend))
	}
	switch c.Generator {
	case GeneratorDeepSeek, GeneratorGemini, GeneratorFallback:
	default:
		errs = append(errs, fmt.Errorf("GENERATOR: unknown generator %q", c.Generator))
	}
	if c.JWTExpiresDays <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_DAYS must be positive"))
	}
	if c.GenerateTimeout <= 0 {
		errs = append(errs, errors.New("GENERATE_TIMEOUT must be positive"))
	}
	if c.RateWindow <= 0 {
		errs = append(errs, errors.New("RATE_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

// Production reports whether cookies should be Secure/SameSite=None.
func (c *Config) Production() bool { return c.Env == "production" }

// LogSummary logs the effective configuration without secret values.
func (c *Config) LogSummary() {
	if c.JWTSecret == devJWTSecret {
		log.Warn().Msg("JWT_SECRET not set, using development secret")
	}
	log.Info().
		Str("port", c.Port).
		Str("store", c.StoreBackend).
		Str("generator", c.Generator).
		Bool("state_secret", c.StateSecret != "").
		Bool("compress", c.StateCompress).
		Bool("encrypt", c.StateEncrypt).
		Int("rate_limit", c.RateLimit).
		Dur("rate_window", c.RateWindow).
		Dur("generate_timeout", c.GenerateTimeout).
		Msg("configuration loaded")
}
