package constants

// Route constants
const (
	HealthRoute  = "/healthz"
	MetricsRoute = "/metrics"
	APIRoute     = "/api"

	// Relative to APIRoute.
	BillingRoute             = "/billing"
	BillingWebhookRoute      = "/webhook"
	BillingCheckoutRoute     = "/checkout"
	BillingPortalRoute       = "/portal"
	BillingSubscriptionRoute = "/subscription/:userID"
	BillingReplayRoute       = "/webhooks/:id/replay"
)
