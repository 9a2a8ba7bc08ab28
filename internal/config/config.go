package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the billing API.
type Config struct {
	Env string // "test" or "live", selects which Stripe key is used

	StripeSecretKey       string
	StripeWebhookSecret   string
	StripePriceID         string
	StripeTargetProductID string

	DatabasePath    string
	FrontendBaseURL string
	ListenAddr      string
}

// Load reads configuration from the environment, applying defaults where a
// value is optional. Required secrets are validated here so the process
// fails at startup, not on the first request.
func Load() (Config, error) {
	// A missing .env file is fine in deployed environments.
	_ = godotenv.Load()

	cfg := Config{
		Env:                   strings.ToLower(getEnv("APP_ENV", "test")),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceID:         os.Getenv("STRIPE_PRICE_ID"),
		StripeTargetProductID: os.Getenv("STRIPE_TARGET_PRODUCT_ID"),
		DatabasePath:          os.Getenv("DATABASE_PATH"),
		FrontendBaseURL:       strings.TrimRight(getEnv("FRONTEND_BASE_URL", "http://localhost:3000"), "/"),
		ListenAddr:            getEnv("LISTEN_ADDR", ":8080"),
	}

	keyVar := "STRIPE_SECRET_KEY_TEST"
	if cfg.Env == "live" {
		keyVar = "STRIPE_SECRET_KEY_LIVE"
	}
	cfg.StripeSecretKey = os.Getenv(keyVar)

	var missing []string
	if cfg.StripeSecretKey == "" {
		missing = append(missing, keyVar)
	}
	if cfg.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if cfg.StripePriceID == "" {
		missing = append(missing, "STRIPE_PRICE_ID")
	}
	if cfg.StripeTargetProductID == "" {
		missing = append(missing, "STRIPE_TARGET_PRODUCT_ID")
	}
	if cfg.DatabasePath == "" {
		missing = append(missing, "DATABASE_PATH")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

// SuccessURL is where Stripe redirects after a completed checkout. The
// session id placeholder is substituted by Stripe, not by us.
func (c Config) SuccessURL() string {
	return c.FrontendBaseURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL is where Stripe redirects when the user abandons checkout.
func (c Config) CancelURL() string {
	return c.FrontendBaseURL + "/pricing"
}

// PortalReturnURL is where the billing portal sends the user back to.
func (c Config) PortalReturnURL() string {
	return c.FrontendBaseURL + "/account"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
