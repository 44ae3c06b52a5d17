package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Deployment modes recognised by the origin policy.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds runtime configuration values for the contact intake service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	DataFile       string
	AdminToken     string
	AllowedOrigin  string
	DatabaseURL    string
	RedisURL       string
	SendGridAPIKey string
	SendGridTo     string
	SendGridFrom   string
	SMTPHost       string
	SMTPPort       int
	SMTPSecure     bool
	SMTPUser       string
	SMTPPass       string
	SMTPFrom       string

	RateLimitWindow time.Duration
	RateLimitMax    int

	DeliveryRetries int
	DeliveryBackoff time.Duration
	DeliveryTimeout time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Load reads configuration values from environment variables and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Contact API")
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("port", "3000")
	v.SetDefault("data.file", "data/submissions.json")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("rate.limit.window", "60s")
	v.SetDefault("rate.limit.max", 20)
	v.SetDefault("delivery.retries", 3)
	v.SetDefault("delivery.backoff", "500ms")
	v.SetDefault("delivery.timeout", "6s")

	window, err := time.ParseDuration(v.GetString("rate.limit.window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	backoff, err := time.ParseDuration(v.GetString("delivery.backoff"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid delivery backoff: %w", err)
	}

	timeout, err := time.ParseDuration(v.GetString("delivery.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid delivery timeout: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          strings.ToLower(v.GetString("app.env")),
		AppPort:         v.GetString("port"),
		DataFile:        v.GetString("data.file"),
		AdminToken:      v.GetString("admin.token"),
		AllowedOrigin:   v.GetString("allowed.origin"),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		SendGridAPIKey:  v.GetString("sendgrid.api.key"),
		SendGridTo:      v.GetString("sendgrid.to"),
		SendGridFrom:    v.GetString("sendgrid.from"),
		SMTPHost:        v.GetString("smtp.host"),
		SMTPPort:        v.GetInt("smtp.port"),
		SMTPSecure:      v.GetBool("smtp.secure"),
		SMTPUser:        v.GetString("smtp.user"),
		SMTPPass:        v.GetString("smtp.pass"),
		SMTPFrom:        v.GetString("smtp.from"),
		RateLimitWindow: window,
		RateLimitMax:    v.GetInt("rate.limit.max"),
		DeliveryRetries: v.GetInt("delivery.retries"),
		DeliveryBackoff: backoff,
		DeliveryTimeout: timeout,
	}

	if cfg.AppEnv != EnvDevelopment && cfg.AppEnv != EnvProduction {
		return Config{}, fmt.Errorf("unknown app env %q", cfg.AppEnv)
	}

	// CORS must never fall open in production.
	if cfg.IsProduction() && cfg.AllowedOrigin == "" {
		return Config{}, fmt.Errorf("ALLOWED_ORIGIN must be set in production")
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 20
	}

	if cfg.DeliveryRetries <= 0 {
		cfg.DeliveryRetries = 3
	}

	return cfg, nil
}
