// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// MapsConfig provides settings for the external distance provider.
type MapsConfig interface {
	GetGoogleMapsAPIKey() string
	GetMapsTimeout() time.Duration
	GetDistanceCacheTTL() time.Duration
	IsMapsEnabled() bool
}

// PaymentConfig provides settings for the hosted checkout provider.
type PaymentConfig interface {
	GetStripeSecretKey() string
	GetStripeWebhookSecret() string
	GetPaymentTimeout() time.Duration
	GetPaymentCurrency() string
	GetCheckoutSuccessURL() string
	GetCheckoutCancelURL() string
	GetCheckoutTTL() time.Duration
	IsPaymentEnabled() bool
}

// PricingConfig provides settings for the rule store.
type PricingConfig interface {
	GetRuleCacheTTL() time.Duration
}

// MarketplaceConfig provides settings for lead inventory and purchase throttling.
type MarketplaceConfig interface {
	GetLeadDefaultMaxSales() int
	GetPurchaseRatePerMinute() int
}

// EmailConfig provides settings for outbound notification email.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetOpsAlertEmail() string
	IsEmailEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	GoogleMapsAPIKey      string
	MapsTimeout           time.Duration
	DistanceCacheTTL      time.Duration
	StripeSecretKey       string
	StripeWebhookSecret   string
	PaymentTimeout        time.Duration
	PaymentCurrency       string
	CheckoutSuccessURL    string
	CheckoutCancelURL     string
	CheckoutTTL           time.Duration
	RuleCacheTTL          time.Duration
	LeadDefaultMaxSales   int
	PurchaseRatePerMinute int
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	OpsAlertEmail         string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// MapsConfig implementation
func (c *Config) GetGoogleMapsAPIKey() string        { return c.GoogleMapsAPIKey }
func (c *Config) GetMapsTimeout() time.Duration      { return c.MapsTimeout }
func (c *Config) GetDistanceCacheTTL() time.Duration { return c.DistanceCacheTTL }
func (c *Config) IsMapsEnabled() bool                { return c.GoogleMapsAPIKey != "" }

// PaymentConfig implementation
func (c *Config) GetStripeSecretKey() string       { return c.StripeSecretKey }
func (c *Config) GetStripeWebhookSecret() string   { return c.StripeWebhookSecret }
func (c *Config) GetPaymentTimeout() time.Duration { return c.PaymentTimeout }
func (c *Config) GetPaymentCurrency() string       { return c.PaymentCurrency }
func (c *Config) GetCheckoutSuccessURL() string    { return c.CheckoutSuccessURL }
func (c *Config) GetCheckoutCancelURL() string     { return c.CheckoutCancelURL }
func (c *Config) GetCheckoutTTL() time.Duration    { return c.CheckoutTTL }
func (c *Config) IsPaymentEnabled() bool           { return c.StripeSecretKey != "" }

// PricingConfig implementation
func (c *Config) GetRuleCacheTTL() time.Duration { return c.RuleCacheTTL }

// MarketplaceConfig implementation
func (c *Config) GetLeadDefaultMaxSales() int   { return c.LeadDefaultMaxSales }
func (c *Config) GetPurchaseRatePerMinute() int { return c.PurchaseRatePerMinute }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetOpsAlertEmail() string    { return c.OpsAlertEmail }
func (c *Config) IsEmailEnabled() bool        { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10"), 10),
		GoogleMapsAPIKey:      getEnv("GOOGLE_MAPS_API_KEY", ""),
		MapsTimeout:           mustDuration(getEnv("MAPS_TIMEOUT", "5s"), 5*time.Second),
		DistanceCacheTTL:      mustDuration(getEnv("DISTANCE_CACHE_TTL", "24h"), 24*time.Hour),
		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		PaymentTimeout:        mustDuration(getEnv("PAYMENT_TIMEOUT", "10s"), 10*time.Second),
		PaymentCurrency:       strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		CheckoutSuccessURL:    getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:4200/vendor/purchases?checkout=success"),
		CheckoutCancelURL:     getEnv("CHECKOUT_CANCEL_URL", "http://localhost:4200/vendor/leads?checkout=cancelled"),
		CheckoutTTL:           mustDuration(getEnv("CHECKOUT_TTL", "30m"), 30*time.Minute),
		RuleCacheTTL:          mustDuration(getEnv("RULE_CACHE_TTL", "5m"), 5*time.Minute),
		LeadDefaultMaxSales:   mustInt(getEnv("LEAD_DEFAULT_MAX_SALES", "3"), 3),
		PurchaseRatePerMinute: mustInt(getEnv("PURCHASE_RATE_PER_MINUTE", "10"), 10),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Lead Marketplace"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		OpsAlertEmail:         getEnv("OPS_ALERT_EMAIL", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if c.IsPaymentEnabled() && c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	if c.LeadDefaultMaxSales < 1 {
		return fmt.Errorf("LEAD_DEFAULT_MAX_SALES must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func mustInt(value string, fallback int) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
