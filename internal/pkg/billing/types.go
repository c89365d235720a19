package billing

import (
	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/ManuelReschke/freelancedesk/app/repository"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the collaborators injected into the billing service.
// Redis, Metrics and Logger are optional.
type Dependencies struct {
	Repos    *repository.Repositories
	Provider Provider
	Redis    *redis.Client
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

// WebhookResult reports what happened to one webhook delivery.
type WebhookResult struct {
	EventID   string
	EventType string
	Outcome   Outcome
	Duplicate bool
}

// ReplayReport summarizes a batch replay of failed deliveries.
type ReplayReport struct {
	Attempted int
	Succeeded int
	Failures  map[string]string
}

// CurrentSubscription is the subscription downstream feature gating uses,
// together with its plan.
type CurrentSubscription struct {
	Subscription *models.Subscription     `json:"subscription"`
	Plan         *models.SubscriptionPlan `json:"plan"`
}
