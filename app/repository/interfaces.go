package repository

import (
	"context"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"gorm.io/gorm"
)

// ProfileRepository reads local user profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// PlanRepository reads the subscription plan catalog.
type PlanRepository interface {
	GetByID(ctx context.Context, id string) (*models.SubscriptionPlan, error)
	ListActive(ctx context.Context) ([]models.SubscriptionPlan, error)
	FindFree(ctx context.Context, name string) (*models.SubscriptionPlan, error)
}

// SubscriptionRepository persists reconciled subscription rows.
type SubscriptionRepository interface {
	GetByUserAndProviderID(ctx context.Context, userID, providerSubscriptionID string) (*models.Subscription, error)
	GetByProviderID(ctx context.Context, providerSubscriptionID string) (*models.Subscription, error)
	CreateIfNotExists(ctx context.Context, sub *models.Subscription) (bool, *models.Subscription, error)
	Update(ctx context.Context, sub *models.Subscription) error
	UpdateStatus(ctx context.Context, id, status string) error
	ListByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	LatestCustomerID(ctx context.Context, userID string) (string, error)
}

// BillingEventRepository appends audit records and performs the single
// subscription backfill they allow.
type BillingEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.BillingEvent) (bool, error)
	FindLatestUnlinked(ctx context.Context, userID, eventType string) (*models.BillingEvent, error)
	LinkSubscription(ctx context.Context, eventID, subscriptionID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.BillingEvent, error)
}

// WebhookEventRepository stores raw webhook deliveries for dedup and replay.
type WebhookEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	GetByID(ctx context.Context, id string) (*models.BillingWebhookEvent, error)
	MarkProcessed(ctx context.Context, id string, processingError string) error
	ListFailed(ctx context.Context, limit int) ([]models.BillingWebhookEvent, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Profile      ProfileRepository
	Plan         PlanRepository
	Subscription SubscriptionRepository
	BillingEvent BillingEventRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Profile:      NewProfileRepository(db),
		Plan:         NewPlanRepository(db),
		Subscription: NewSubscriptionRepository(db),
		BillingEvent: NewBillingEventRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
