package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/ManuelReschke/freelancedesk/app/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorder appends billing events to the audit log. Inserts are keyed by
// (provider event id, event type) so a redelivered event is recorded once.
type Recorder struct {
	events    repository.BillingEventRepository
	customers *CustomerResolver
	logger    *zap.Logger
}

func NewRecorder(events repository.BillingEventRepository, customers *CustomerResolver, logger *zap.Logger) *Recorder {
	return &Recorder{events: events, customers: customers, logger: orNop(logger)}
}

// RecordCheckout stores the pending subscription_created event for a
// completed checkout. The subscription does not exist yet, so the event is
// left unlinked until Backfill runs.
func (r *Recorder) RecordCheckout(ctx context.Context, ev CheckoutCompleted) error {
	s := ev.Session
	userID := strings.TrimSpace(s.Metadata[MetadataUserID])
	if userID == "" {
		var err error
		if userID, err = r.customers.ResolveUser(ctx, s.Customer.String()); err != nil {
			return err
		}
	}

	amount := MinorToMajor(s.AmountTotal)
	metadata := datatypes.JSONMap{
		"checkout_session_id": s.ID,
	}
	for _, key := range []string{MetadataPlanID, MetadataBillingCycle} {
		if v := s.Metadata[key]; v != "" {
			metadata[key] = v
		}
	}
	if s.Subscription != "" {
		metadata["provider_subscription_id"] = s.Subscription.String()
	}

	return r.insert(ctx, &models.BillingEvent{
		UserID:          userID,
		EventType:       models.BillingEventSubscriptionCreated,
		Amount:          &amount,
		Currency:        strings.ToLower(s.Currency),
		Status:          models.BillingEventStatusSucceeded,
		ExternalEventID: ev.ID,
		Metadata:        metadata,
	})
}

// RecordInvoice stores an invoice_paid or invoice_payment_failed event. sub
// may be nil when the invoice is not tied to a known subscription; the user
// is then resolved through the provider customer.
func (r *Recorder) RecordInvoice(ctx context.Context, eventID string, inv InvoiceObject, sub *models.Subscription, failed bool) error {
	event := &models.BillingEvent{
		EventType:       models.BillingEventInvoicePaid,
		Status:          models.BillingEventStatusSucceeded,
		Currency:        strings.ToLower(inv.Currency),
		ExternalEventID: eventID,
		Metadata:        datatypes.JSONMap{"invoice_id": inv.ID},
	}
	amount := MinorToMajor(inv.AmountPaid)
	if failed {
		event.EventType = models.BillingEventInvoicePaymentFailed
		event.Status = models.BillingEventStatusFailed
		amount = MinorToMajor(inv.AmountDue)
	}
	event.Amount = &amount

	if sub != nil {
		event.UserID = sub.UserID
		event.SubscriptionID = &sub.ID
	} else {
		userID, err := r.customers.ResolveUser(ctx, inv.Customer.String())
		if err != nil {
			return err
		}
		event.UserID = userID
	}
	return r.insert(ctx, event)
}

// RecordSubscriptionChange appends a subscription_updated or
// subscription_canceled event. Failures are logged and never returned: the
// audit row must not block the reconciled state change.
func (r *Recorder) RecordSubscriptionChange(ctx context.Context, eventID, eventType string, sub *models.Subscription) {
	event := &models.BillingEvent{
		UserID:          sub.UserID,
		SubscriptionID:  &sub.ID,
		EventType:       eventType,
		Status:          models.BillingEventStatusSucceeded,
		ExternalEventID: eventID,
		Metadata: datatypes.JSONMap{
			"provider_subscription_id": sub.ProviderSubscriptionID,
			"status":                   sub.Status,
			"plan_id":                  sub.PlanID,
		},
	}
	if err := r.insert(ctx, event); err != nil {
		r.logger.Warn("failed to record billing event",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.String("subscription_id", sub.ID),
			zap.Error(err))
	}
}

// Backfill links the newest unlinked subscription_created event of the user
// to subscriptionID. A miss is logged and reported as false.
func (r *Recorder) Backfill(ctx context.Context, userID, subscriptionID string) bool {
	pending, err := r.events.FindLatestUnlinked(ctx, userID, models.BillingEventSubscriptionCreated)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Info("no pending billing event to link",
				zap.String("user_id", userID), zap.String("subscription_id", subscriptionID))
		} else {
			r.logger.Warn("billing event backfill lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return false
	}

	linked, err := r.events.LinkSubscription(ctx, pending.ID, subscriptionID)
	if err != nil {
		r.logger.Warn("billing event backfill failed", zap.String("billing_event_id", pending.ID), zap.Error(err))
		return false
	}
	if !linked {
		r.logger.Info("billing event was linked concurrently", zap.String("billing_event_id", pending.ID))
	}
	return linked
}

func (r *Recorder) insert(ctx context.Context, event *models.BillingEvent) error {
	inserted, err := r.events.CreateIfNotExists(ctx, event)
	if err != nil {
		return err
	}
	if !inserted {
		r.logger.Info("billing event already recorded",
			zap.String("external_event_id", event.ExternalEventID),
			zap.String("event_type", event.EventType))
	}
	return nil
}
