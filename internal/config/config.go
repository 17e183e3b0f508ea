package config

import (
	"os"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Stripe billing
	StripeAPIKey        string
	StripeWebhookSecret string
	StripePricePlus     string
	StripePriceMax      string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	// Entitlement caches
	TierCacheTTL         time.Duration
	SubscriptionCacheTTL time.Duration
	StoreTimeout         time.Duration

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Server
	Port        string
	CORSOrigins string

	// Feature limits registry
	FeaturesConfigPath string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "studyhall_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		StripeAPIKey:        getEnv("STRIPE_API_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePricePlus:     getEnv("STRIPE_PRICE_PLUS", ""),
		StripePriceMax:      getEnv("STRIPE_PRICE_MAX", ""),
		CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "https://app.studyhall.io/billing/success"),
		CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "https://app.studyhall.io/billing/cancel"),

		TierCacheTTL:         parseDuration(getEnv("TIER_CACHE_TTL", "60s"), 60*time.Second),
		SubscriptionCacheTTL: parseDuration(getEnv("SUBSCRIPTION_CACHE_TTL", "5m"), 5*time.Minute),
		StoreTimeout:         parseDuration(getEnv("STORE_TIMEOUT", "5s"), 5*time.Second),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		FeaturesConfigPath: getEnv("FEATURES_CONFIG_PATH", "features.json"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
