package billing

import (
	"strings"
	"time"

	"github.com/ManuelReschke/freelancedesk/internal/pkg/env"
)

// Config holds the billing settings read from the environment.
type Config struct {
	SecretKey       string
	WebhookSecret   string
	Currency        string
	FreePlanName    string
	PlanCacheTTL    time.Duration
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

// ConfigFromEnv builds the billing configuration.
func ConfigFromEnv() Config {
	domain := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080"), "/")

	ttl, err := time.ParseDuration(env.GetEnv("BILLING_PLAN_CACHE_TTL", "5m"))
	if err != nil {
		ttl = 5 * time.Minute
	}

	return Config{
		SecretKey:       env.GetEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret:   env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		Currency:        strings.ToLower(env.GetEnv("BILLING_CURRENCY", "usd")),
		FreePlanName:    env.GetEnv("BILLING_FREE_PLAN_NAME", "Free"),
		PlanCacheTTL:    ttl,
		SuccessURL:      domain + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       domain + "/billing/cancel",
		PortalReturnURL: domain + "/settings/billing",
	}
}
