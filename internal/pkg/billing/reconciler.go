package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/ManuelReschke/freelancedesk/app/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reconciler applies provider subscription events to local subscription rows.
// Every transition is safe to run twice with the same event.
type Reconciler struct {
	subs      repository.SubscriptionRepository
	customers *CustomerResolver
	plans     *PlanMatcher
	recorder  *Recorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewReconciler(
	subs repository.SubscriptionRepository,
	customers *CustomerResolver,
	plans *PlanMatcher,
	recorder *Recorder,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		subs:      subs,
		customers: customers,
		plans:     plans,
		recorder:  recorder,
		logger:    orNop(logger),
		now:       time.Now,
	}
}

// Create inserts the subscription row for a new provider subscription. If a
// row for (user, provider subscription) already exists the event is applied
// through the update path instead.
func (r *Reconciler) Create(ctx context.Context, ev SubscriptionCreated) (*models.Subscription, error) {
	obj := ev.Subscription
	userID, err := r.customers.ResolveUser(ctx, obj.Customer.String())
	if err != nil {
		return nil, err
	}

	existing, err := r.subs.GetByUserAndProviderID(ctx, userID, obj.ID)
	switch {
	case err == nil:
		r.logger.Info("subscription already exists, applying as update",
			zap.String("event_id", ev.ID), zap.String("subscription_id", existing.ID))
		return r.apply(ctx, ev.ID, existing, obj)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	planID, err := r.plans.Match(ctx, obj.Metadata, obj.ProductID())
	if err != nil {
		return nil, err
	}

	start, end := obj.Period()
	sub := &models.Subscription{
		UserID:                 userID,
		PlanID:                 planID,
		Status:                 obj.Status,
		CurrentPeriodStart:     start,
		CurrentPeriodEnd:       end,
		BillingCycle:           BillingCycleFromInterval(obj.Interval()),
		CancelAtPeriodEnd:      obj.CancelAtPeriodEnd,
		TrialStart:             epochToTime(obj.TrialStart),
		TrialEnd:               epochToTime(obj.TrialEnd),
		ProviderCustomerID:     obj.Customer.String(),
		ProviderSubscriptionID: obj.ID,
		ProviderPriceID:        obj.PriceID(),
	}
	created, stored, err := r.subs.CreateIfNotExists(ctx, sub)
	if err != nil {
		return nil, err
	}
	if !created {
		return r.apply(ctx, ev.ID, stored, obj)
	}

	r.logger.Info("subscription created",
		zap.String("event_id", ev.ID),
		zap.String("user_id", userID),
		zap.String("subscription_id", stored.ID),
		zap.String("plan_id", planID))
	r.recorder.Backfill(ctx, userID, stored.ID)
	return stored, nil
}

// Update applies a provider subscription change to the existing row.
func (r *Reconciler) Update(ctx context.Context, ev SubscriptionUpdated) (*models.Subscription, error) {
	existing, err := r.find(ctx, ev.Subscription.ID)
	if err != nil {
		return nil, err
	}
	return r.apply(ctx, ev.ID, existing, ev.Subscription)
}

// apply copies provider state onto sub. The plan is re-derived only when the
// price changed or explicit plan metadata is present. An unresolvable plan
// keeps the current one and leaves the stored price untouched so the next
// update retries the match; any other matching error fails the delivery.
func (r *Reconciler) apply(ctx context.Context, eventID string, sub *models.Subscription, obj SubscriptionObject) (*models.Subscription, error) {
	priceID := obj.PriceID()
	priceSettled := true
	if obj.Metadata[MetadataPlanID] != "" || (priceID != "" && priceID != sub.ProviderPriceID) {
		planID, err := r.plans.Match(ctx, obj.Metadata, obj.ProductID())
		switch {
		case err == nil:
			sub.PlanID = planID
		case errors.Is(err, ErrPlanResolutionFailed):
			priceSettled = false
			r.logger.Warn("keeping current plan, new price could not be matched",
				zap.String("subscription_id", sub.ID),
				zap.String("price_id", priceID),
				zap.String("plan_id", sub.PlanID),
				zap.Error(err))
		default:
			return nil, fmt.Errorf("billing: match plan for subscription %s: %w", sub.ID, err)
		}
	}
	if priceID != "" && priceSettled {
		sub.ProviderPriceID = priceID
	}

	sub.BillingCycle = BillingCycleFromInterval(obj.Interval())
	sub.CurrentPeriodStart, sub.CurrentPeriodEnd = obj.Period()
	sub.CancelAtPeriodEnd = obj.CancelAtPeriodEnd
	// A canceled row is terminal; a late update must not revive it.
	if !sub.IsCanceled() {
		if obj.Status != "" {
			sub.Status = obj.Status
		}
		sub.CanceledAt = epochToTime(obj.CanceledAt)
		sub.EndedAt = epochToTime(obj.EndedAt)
	}
	sub.TrialStart = epochToTime(obj.TrialStart)
	sub.TrialEnd = epochToTime(obj.TrialEnd)
	if obj.Customer != "" {
		sub.ProviderCustomerID = obj.Customer.String()
	}

	if err := r.subs.Update(ctx, sub); err != nil {
		return nil, err
	}
	r.recorder.RecordSubscriptionChange(ctx, eventID, models.BillingEventSubscriptionUpdated, sub)
	return sub, nil
}

// Terminate cancels the row for a deleted provider subscription. A row that
// is already canceled keeps its original timestamps.
func (r *Reconciler) Terminate(ctx context.Context, ev SubscriptionDeleted) (*models.Subscription, error) {
	sub, err := r.find(ctx, ev.Subscription.ID)
	if err != nil {
		return nil, err
	}

	if !sub.IsCanceled() {
		now := r.now().UTC()
		sub.Status = models.SubscriptionStatusCanceled
		sub.CanceledAt = &now
		sub.EndedAt = &now
		if err := r.subs.Update(ctx, sub); err != nil {
			return nil, err
		}
		r.logger.Info("subscription canceled",
			zap.String("event_id", ev.ID), zap.String("subscription_id", sub.ID), zap.String("user_id", sub.UserID))
	}
	r.recorder.RecordSubscriptionChange(ctx, ev.ID, models.BillingEventSubscriptionCanceled, sub)
	return sub, nil
}

// MarkPastDue moves the invoice's subscription to past_due. It returns nil
// without error when the invoice has no subscription reference; a canceled
// row is left untouched.
func (r *Reconciler) MarkPastDue(ctx context.Context, inv InvoiceObject) (*models.Subscription, error) {
	ref := inv.SubscriptionRef()
	if ref == "" {
		return nil, nil
	}
	sub, err := r.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if sub.IsCanceled() || sub.Status == models.SubscriptionStatusPastDue {
		return sub, nil
	}
	if err := r.subs.UpdateStatus(ctx, sub.ID, models.SubscriptionStatusPastDue); err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionStatusPastDue
	return sub, nil
}

// ForInvoice returns the local subscription an invoice belongs to, or nil
// when it is not known locally.
func (r *Reconciler) ForInvoice(ctx context.Context, inv InvoiceObject) (*models.Subscription, error) {
	ref := inv.SubscriptionRef()
	if ref == "" {
		return nil, nil
	}
	sub, err := r.subs.GetByProviderID(ctx, ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return sub, err
}

func (r *Reconciler) find(ctx context.Context, providerSubscriptionID string) (*models.Subscription, error) {
	sub, err := r.subs.GetByProviderID(ctx, providerSubscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, providerSubscriptionID)
		}
		return nil, err
	}
	return sub, nil
}
