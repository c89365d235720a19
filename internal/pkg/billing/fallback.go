package billing

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/ManuelReschke/freelancedesk/app/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FallbackPeriod is the period window given to a provisioned free subscription.
const FallbackPeriod = 365 * 24 * time.Hour

// fallbackRefPrefix marks provider subscription references of fallback rows.
const fallbackRefPrefix = "fallback:"

// FallbackProvisioner gives a user whose subscription ended an active
// free-plan subscription.
type FallbackProvisioner struct {
	plans        repository.PlanRepository
	subs         repository.SubscriptionRepository
	freePlanName string
	logger       *zap.Logger
	now          func() time.Time
}

func NewFallbackProvisioner(plans repository.PlanRepository, subs repository.SubscriptionRepository, freePlanName string, logger *zap.Logger) *FallbackProvisioner {
	return &FallbackProvisioner{
		plans:        plans,
		subs:         subs,
		freePlanName: freePlanName,
		logger:       orNop(logger),
		now:          time.Now,
	}
}

// Provision inserts the free-plan row for the owner of terminated. The row
// is keyed by the terminated provider reference, so repeating it is a no-op.
// A catalog without a free plan yields (nil, nil).
func (f *FallbackProvisioner) Provision(ctx context.Context, terminated *models.Subscription) (*models.Subscription, error) {
	plan, err := f.plans.FindFree(ctx, f.freePlanName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			f.logger.Warn("no free plan in catalog, user left without active subscription",
				zap.String("user_id", terminated.UserID), zap.String("free_plan_name", f.freePlanName))
			return nil, nil
		}
		return nil, err
	}

	start := f.now().UTC()
	end := start.Add(FallbackPeriod)
	created, stored, err := f.subs.CreateIfNotExists(ctx, &models.Subscription{
		UserID:                 terminated.UserID,
		PlanID:                 plan.ID,
		Status:                 models.SubscriptionStatusActive,
		CurrentPeriodStart:     &start,
		CurrentPeriodEnd:       &end,
		BillingCycle:           models.BillingCycleMonthly,
		ProviderCustomerID:     terminated.ProviderCustomerID,
		ProviderSubscriptionID: fallbackRefPrefix + terminated.ProviderSubscriptionID,
	})
	if err != nil {
		return nil, err
	}
	if created {
		f.logger.Info("provisioned fallback subscription",
			zap.String("user_id", terminated.UserID), zap.String("subscription_id", stored.ID), zap.String("plan_id", plan.ID))
	}
	return stored, nil
}
