// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (rate limiting); optional, in-memory fallback when empty
	RedisURL string `koanf:"redis_url"`

	// Operator JWT authentication
	JWTSecret string `koanf:"jwt_secret"`

	// Stripe
	StripeAPIKey        string `koanf:"stripe_api_key"`
	StripeWebhookSecret string `koanf:"stripe_webhook_secret"`

	// SiteURL is the public site base used to build checkout redirect URLs.
	SiteURL string `koanf:"site_url"`

	// Email delivery (Resend); optional, notifications are skipped when empty
	ResendAPIKey string `koanf:"resend_api_key"`
	EmailFrom    string `koanf:"email_from"`
	ContactInbox string `koanf:"contact_inbox"`

	// DepositAmountCents is the fixed priority deposit amount.
	// Never user-supplied.
	DepositAmountCents int64 `koanf:"deposit_amount_cents"`

	// Feature flags
	ComingSoonMode bool `koanf:"coming_soon_mode"`

	// Tracing (optional OTLP export)
	TracingEnabled  bool   `koanf:"tracing_enabled"`
	TracingEndpoint string `koanf:"tracing_endpoint"`
	TracingInsecure bool   `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL         = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret           = errors.New("JWT_SECRET is required")
	ErrMissingStripeAPIKey        = errors.New("STRIPE_API_KEY is required")
	ErrMissingStripeWebhookSecret = errors.New("STRIPE_WEBHOOK_SECRET is required")
	ErrMissingSiteURL             = errors.New("SITE_URL is required")
	ErrInvalidDepositAmount       = errors.New("DEPOSIT_AMOUNT_CENTS must be positive")
	ErrInvalidPort                = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort               = 8080
	DefaultEnv                = "development"
	DefaultDepositAmountCents = 10000 // $100 hold
	DefaultEmailFrom          = "VerifyHire <hello@verifyhire.com>"
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	depositAmount, depositErr := getEnvInt64OrDefault("DEPOSIT_AMOUNT_CENTS", k.Int64("deposit_amount_cents"), DefaultDepositAmountCents)
	if depositErr != nil {
		loadErrs = append(loadErrs, depositErr)
	}

	cfg := &Config{
		Port:                port,
		Env:                 getEnvOrDefaultMulti([]string{"ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:         getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:            getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:           getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		StripeAPIKey:        getEnvOrKoanf("STRIPE_API_KEY", k, "stripe_api_key"),
		StripeWebhookSecret: getEnvOrKoanf("STRIPE_WEBHOOK_SECRET", k, "stripe_webhook_secret"),
		SiteURL:             getEnvOrKoanf("SITE_URL", k, "site_url"),
		ResendAPIKey:        getEnvOrKoanf("RESEND_API_KEY", k, "resend_api_key"),
		EmailFrom:           getEnvOrDefault("EMAIL_FROM", k.String("email_from"), DefaultEmailFrom),
		ContactInbox:        getEnvOrKoanf("CONTACT_INBOX", k, "contact_inbox"),
		DepositAmountCents:  depositAmount,
		ComingSoonMode:      getEnvBoolOrDefault("COMING_SOON_MODE", k, "coming_soon_mode", false),
		TracingEnabled:      getEnvBoolOrDefault("TRACING_ENABLED", k, "tracing_enabled", false),
		TracingEndpoint:     getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingInsecure:     getEnvBoolOrDefault("TRACING_INSECURE", k, "tracing_insecure", false),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvInt64OrDefault returns the environment variable as int64 if set, otherwise the koanf value, or default.
func getEnvInt64OrDefault(envKey string, koanfVal int64, defaultVal int64) (int64, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvBoolOrDefault returns the environment variable as bool if set,
// otherwise the koanf value, or default. Env values accept true/1/yes/on
// and false/0/no/off; anything else keeps the prior value.
func getEnvBoolOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	result := defaultVal
	if k.Exists(koanfKey) {
		result = k.Bool(koanfKey)
	}
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			result = true
		case "false", "0", "no", "off":
			result = false
		}
	}
	return result
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.StripeAPIKey == "" {
		errs = append(errs, ErrMissingStripeAPIKey)
	}
	if c.StripeWebhookSecret == "" {
		errs = append(errs, ErrMissingStripeWebhookSecret)
	}
	if c.SiteURL == "" {
		errs = append(errs, ErrMissingSiteURL)
	}
	if c.DepositAmountCents <= 0 {
		errs = append(errs, ErrInvalidDepositAmount)
	}

	return errs
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CheckoutSuccessURL is the redirect target after a completed checkout.
func (c *Config) CheckoutSuccessURL() string {
	return strings.TrimRight(c.SiteURL, "/") + "/deposit/success"
}

// CheckoutCancelURL is the redirect target after an abandoned checkout.
func (c *Config) CheckoutCancelURL() string {
	return strings.TrimRight(c.SiteURL, "/") + "/deposit/cancel"
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  fmt.Sprintf("%d", c.Port),
		"env":                   c.Env,
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"redis_url":             maskDatabaseURL(c.RedisURL),
		"jwt_secret":            maskSecret(c.JWTSecret),
		"stripe_api_key":        maskStripeKey(c.StripeAPIKey),
		"stripe_webhook_secret": maskSecret(c.StripeWebhookSecret),
		"site_url":              c.SiteURL,
		"resend_api_key":        maskSecret(c.ResendAPIKey),
		"email_from":            c.EmailFrom,
		"contact_inbox":         c.ContactInbox,
		"deposit_amount_cents":  fmt.Sprintf("%d", c.DepositAmountCents),
		"coming_soon_mode":      fmt.Sprintf("%t", c.ComingSoonMode),
		"tracing_enabled":       fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_endpoint":      c.TracingEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskStripeKey masks a Stripe API key, preserving the prefix (sk_live_, sk_test_, etc.)
func maskStripeKey(s string) string {
	if s == "" {
		return "<not set>"
	}

	parts := strings.SplitN(s, "_", 3)
	if len(parts) == 3 {
		return parts[0] + "_" + parts[1] + "_****"
	}

	return maskSecret(s)
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
