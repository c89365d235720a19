package billing

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Outcome describes how a dispatched event was handled.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
)

// Router dispatches verified events to their reconciliation handlers.
type Router struct {
	reconciler *Reconciler
	recorder   *Recorder
	fallback   *FallbackProvisioner
	logger     *zap.Logger
}

func NewRouter(reconciler *Reconciler, recorder *Recorder, fallback *FallbackProvisioner, logger *zap.Logger) *Router {
	return &Router{reconciler: reconciler, recorder: recorder, fallback: fallback, logger: orNop(logger)}
}

// Dispatch runs the handler for ev. Unknown event types are acknowledged
// with OutcomeIgnored. A returned error means the delivery must be retried.
func (r *Router) Dispatch(ctx context.Context, ev Event) (Outcome, error) {
	var err error
	switch e := ev.(type) {
	case CheckoutCompleted:
		if e.Session.Mode != CheckoutModeSubscription {
			r.logger.Info("ignoring checkout outside subscription mode",
				zap.String("event_id", e.ID), zap.String("session_id", e.Session.ID), zap.String("mode", e.Session.Mode))
			return OutcomeIgnored, nil
		}
		err = r.recorder.RecordCheckout(ctx, e)
	case SubscriptionCreated:
		_, err = r.reconciler.Create(ctx, e)
	case SubscriptionUpdated:
		_, err = r.reconciler.Update(ctx, e)
	case SubscriptionDeleted:
		err = r.terminate(ctx, e)
	case InvoicePaid:
		err = r.invoicePaid(ctx, e)
	case InvoicePaymentFailed:
		err = r.invoiceFailed(ctx, e)
	case Unknown:
		r.logger.Info("ignoring unhandled event type", zap.String("event_id", e.ID), zap.String("event_type", e.Type))
		return OutcomeIgnored, nil
	default:
		return "", fmt.Errorf("billing: unexpected event %T", ev)
	}
	if err != nil {
		return "", fmt.Errorf("billing: handle %s %s: %w", ev.EventType(), ev.EventID(), err)
	}
	return OutcomeProcessed, nil
}

func (r *Router) terminate(ctx context.Context, e SubscriptionDeleted) error {
	sub, err := r.reconciler.Terminate(ctx, e)
	if err != nil {
		return err
	}
	_, err = r.fallback.Provision(ctx, sub)
	return err
}

func (r *Router) invoicePaid(ctx context.Context, e InvoicePaid) error {
	sub, err := r.reconciler.ForInvoice(ctx, e.Invoice)
	if err != nil {
		return err
	}
	return r.recorder.RecordInvoice(ctx, e.ID, e.Invoice, sub, false)
}

func (r *Router) invoiceFailed(ctx context.Context, e InvoicePaymentFailed) error {
	sub, err := r.reconciler.MarkPastDue(ctx, e.Invoice)
	if err != nil {
		return err
	}
	return r.recorder.RecordInvoice(ctx, e.ID, e.Invoice, sub, true)
}
