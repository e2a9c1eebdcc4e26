package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	PublicBaseURL      string
	LogLevel           string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	StudioName        string
	StudioNotifyEmail string
	StudioTimezone    string

	// Stripe
	StripeSecretKey       string
	StripeWebhookSecret   string
	StripeDefaultCurrency string

	// Cal.com calendar sync
	CalcomAPIKey     string
	CalcomBaseURL    string
	CalsyncEnabled   bool
	CalsyncInterval  time.Duration
	CalsyncBatchSize int
	CalsyncLockTTL   time.Duration

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESConfigSet      string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Notification delivery
	NotifyMaxAttempts  int
	NotifyBaseDelay    time.Duration
	NotifyPollInterval time.Duration
	NotifyBatchSize    int

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),

		StudioName:        getEnv("STUDIO_NAME", "Ink Studio"),
		StudioNotifyEmail: getEnv("STUDIO_NOTIFY_EMAIL", ""),
		StudioTimezone:    getEnv("STUDIO_TIMEZONE", "UTC"),

		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeDefaultCurrency: strings.ToLower(getEnv("STRIPE_DEFAULT_CURRENCY", "usd")),

		CalcomAPIKey:     getEnv("CALCOM_API_KEY", ""),
		CalcomBaseURL:    getEnv("CALCOM_BASE_URL", "https://api.cal.com"),
		CalsyncEnabled:   getEnvAsBool("CALSYNC_ENABLED", false),
		CalsyncInterval:  getEnvAsDuration("CALSYNC_INTERVAL", 15*time.Minute),
		CalsyncBatchSize: getEnvAsInt("CALSYNC_BATCH_SIZE", 50),
		CalsyncLockTTL:   getEnvAsDuration("CALSYNC_LOCK_TTL", 5*time.Minute),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Ink Studio"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESConfigSet:      getEnv("SES_CONFIGURATION_SET", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		NotifyMaxAttempts:  getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 5),
		NotifyBaseDelay:    getEnvAsDuration("NOTIFY_BASE_DELAY", 30*time.Second),
		NotifyPollInterval: getEnvAsDuration("NOTIFY_POLL_INTERVAL", 5*time.Second),
		NotifyBatchSize:    getEnvAsInt("NOTIFY_BATCH_SIZE", 25),

		KafkaBrokers: getEnvAsList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "studio.events"),
	}
}

// CalcomConfigured reports whether calendar sync credentials are present.
func (c *Config) CalcomConfigured() bool {
	return strings.TrimSpace(c.CalcomAPIKey) != ""
}

// StripeConfigured reports whether payment credentials are present.
func (c *Config) StripeConfigured() bool {
	return strings.TrimSpace(c.StripeSecretKey) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
