package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required,url|uri"`
	// IdentityDatabaseURL points at the identity store. It may be the same
	// database as DatabaseURL; profile and identity writes never share a transaction.
	IdentityDatabaseURL string `mapstructure:"IDENTITY_DATABASE_URL" validate:"omitempty,url|uri"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"gte=0,lte=15"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`
	GoMaxProcs       int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	JWTSecret         string        `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	TokenTTL          time.Duration `mapstructure:"TOKEN_TTL" validate:"required"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL" validate:"required"`
	SessionCookieName string        `mapstructure:"SESSION_COOKIE_NAME" validate:"required"`
	CookieSecure      bool          `mapstructure:"COOKIE_SECURE"`

	CORSAllowedOrigins []string `mapstructure:"-"`

	StripeAPIKey        string `mapstructure:"STRIPE_API_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	PaymentCurrency     string `mapstructure:"PAYMENT_CURRENCY" validate:"required,len=3"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DATABASE_URL",
	"IDENTITY_DATABASE_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"ASYNQ_CONCURRENCY",
	"GOMAXPROCS",
	"JWT_SECRET",
	"TOKEN_TTL",
	"SESSION_TTL",
	"SESSION_COOKIE_NAME",
	"COOKIE_SECURE",
	"CORS_ALLOWED_ORIGINS",
	"STRIPE_API_KEY",
	"STRIPE_WEBHOOK_SECRET",
	"PAYMENT_CURRENCY",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_COOKIE_NAME", "reelwork_session")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("PAYMENT_CURRENCY", "usd")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	durations := map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
		"TOKEN_TTL":        &c.TokenTTL,
		"SESSION_TTL":      &c.SessionTTL,
	}
	for key, dst := range durations {
		s := v.GetString(key)
		if s == "" {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	c.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))
	c.PaymentCurrency = strings.ToLower(c.PaymentCurrency)
	if c.IdentityDatabaseURL == "" {
		c.IdentityDatabaseURL = c.DatabaseURL
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}

// IsDevelopment reports whether verbose diagnostics should be enabled.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "test"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
