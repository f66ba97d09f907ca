package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	productionBaseURL = "https://api.airwallex.com"
	demoBaseURL       = "https://api-demo.airwallex.com"
)

// Config holds application configuration loaded from the environment. It is
// built once at startup and treated as immutable for the process lifetime.
type Config struct {
	AppEnv             string
	Port               string
	AirwallexClientID  string
	AirwallexAPIKey    string
	AirwallexBaseURL   string
	WebhookSecret      string
	CORSAllowedOrigins []string

	// RequestTimeout bounds each outbound call to the processor.
	RequestTimeout time.Duration
	// TokenTTLMargin is the safety window before token expiry at which a
	// cached token is considered stale.
	TokenTTLMargin time.Duration

	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
}

// Load reads configuration from environment variables and optional .env files.
// Missing processor credentials are not fatal here: the process still serves
// health endpoints, and payment routes report a configuration error on use.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:              valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                valueOrDefault(k.String("PORT"), "8080"),
		AirwallexClientID:   strings.TrimSpace(k.String("AIRWALLEX_CLIENT_ID")),
		AirwallexAPIKey:     strings.TrimSpace(k.String("AIRWALLEX_API_KEY")),
		AirwallexBaseURL:    strings.TrimSpace(k.String("AIRWALLEX_BASE_URL")),
		WebhookSecret:       strings.TrimSpace(k.String("AIRWALLEX_WEBHOOK_SECRET")),
		CORSAllowedOrigins:  splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RequestTimeout:      parseDuration(k.String("PAYMENT_REQUEST_TIMEOUT"), "20s"),
		TokenTTLMargin:      parseDuration(k.String("TOKEN_TTL_MARGIN"), "1m"),
		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 5),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),
	}

	if cfg.AirwallexBaseURL == "" {
		if cfg.IsProduction() {
			cfg.AirwallexBaseURL = productionBaseURL
		} else {
			cfg.AirwallexBaseURL = demoBaseURL
		}
	}
	cfg.AirwallexBaseURL = strings.TrimRight(cfg.AirwallexBaseURL, "/")

	return cfg, nil
}

// HasCredentials reports whether both processor credentials are present.
func (c *Config) HasCredentials() bool {
	return c.AirwallexClientID != "" && c.AirwallexAPIKey != ""
}

// IsProduction reports whether the process runs in production mode. Raw
// provider error payloads are suppressed from responses in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return fallback
}

func parseFloat(value string, fallback float64) float64 {
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return parsed
	}
	return fallback
}

// LoadForTests allows tests to override environment variables without
// touching the real environment permanently.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
