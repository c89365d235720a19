package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/ManuelReschke/freelancedesk/app/repository"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/entitlements"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Webhook outcomes reported to metrics in addition to the router outcomes.
const (
	outcomeDuplicate        = "duplicate"
	outcomeInvalidSignature = "invalid_signature"
	outcomeInvalidPayload   = "invalid_payload"
	outcomeFailed           = "failed"
)

// Service wires the billing components together.
type Service struct {
	repos    *repository.Repositories
	verifier *Verifier
	router   *Router
	checkout *CheckoutService
	catalog  *PlanCatalog
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewService builds the billing service from its configuration and collaborators.
func NewService(cfg Config, deps Dependencies) *Service {
	logger := orNop(deps.Logger).Named("billing")
	repos := deps.Repos

	catalog := NewPlanCatalog(repos.Plan, deps.Redis, cfg.PlanCacheTTL, logger)
	customers := NewCustomerResolver(deps.Provider, repos.Subscription, logger)
	matcher := NewPlanMatcher(catalog, deps.Provider, logger)
	recorder := NewRecorder(repos.BillingEvent, customers, logger)
	reconciler := NewReconciler(repos.Subscription, customers, matcher, recorder, logger)
	fallback := NewFallbackProvisioner(repos.Plan, repos.Subscription, cfg.FreePlanName, logger)

	return &Service{
		repos:    repos,
		verifier: NewVerifier(cfg.WebhookSecret),
		router:   NewRouter(reconciler, recorder, fallback, logger),
		checkout: NewCheckoutService(repos, customers, deps.Provider, cfg, logger),
		catalog:  catalog,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// HandleWebhook verifies, records and dispatches one webhook delivery.
// Verification happens before any data access. A delivery that already
// succeeded is acknowledged as a duplicate without running handlers.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	started := time.Now()

	ev, err := s.verifier.Verify(payload, signature)
	if err != nil {
		outcome := outcomeInvalidSignature
		if errors.Is(err, ErrInvalidPayload) {
			outcome = outcomeInvalidPayload
		}
		s.metrics.RecordWebhook("", outcome, time.Since(started))
		s.logger.Warn("rejected webhook delivery", zap.Error(err))
		return nil, err
	}

	result := &WebhookResult{EventID: ev.EventID(), EventType: ev.EventType()}
	log := s.logger.With(zap.String("event_id", result.EventID), zap.String("event_type", result.EventType))

	created, stored, err := s.repos.WebhookEvent.CreateIfNotExists(ctx, &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: result.EventID,
		EventType:       result.EventType,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		s.metrics.RecordWebhook(result.EventType, outcomeFailed, time.Since(started))
		return nil, fmt.Errorf("billing: persist webhook delivery: %w", err)
	}
	if !created && stored.Succeeded() {
		log.Info("duplicate webhook delivery")
		result.Duplicate = true
		s.metrics.RecordWebhook(result.EventType, outcomeDuplicate, time.Since(started))
		return result, nil
	}

	log.Info("processing webhook delivery", zap.Bool("redelivery", !created))
	outcome, err := s.dispatch(ctx, stored.ID, ev)
	if err != nil {
		s.metrics.RecordWebhook(result.EventType, outcomeFailed, time.Since(started))
		log.Error("webhook processing failed", zap.Bool("fatal", IsFatal(err)), zap.Error(err))
		return result, err
	}
	result.Outcome = outcome
	s.metrics.RecordWebhook(result.EventType, string(outcome), time.Since(started))
	return result, nil
}

// Replay re-dispatches one stored delivery. Its signature was verified at intake.
func (s *Service) Replay(ctx context.Context, deliveryID string) (*WebhookResult, error) {
	stored, err := s.repos.WebhookEvent.GetByID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDeliveryNotFound, deliveryID)
		}
		return nil, err
	}
	if !stored.SignatureValid {
		return nil, fmt.Errorf("%w: delivery %s was never verified", ErrInvalidSignature, deliveryID)
	}
	return s.replay(ctx, stored)
}

// ReplayFailed re-dispatches up to limit deliveries whose last attempt failed.
func (s *Service) ReplayFailed(ctx context.Context, limit int) (*ReplayReport, error) {
	failed, err := s.repos.WebhookEvent.ListFailed(ctx, limit)
	if err != nil {
		return nil, err
	}

	report := &ReplayReport{Failures: map[string]string{}}
	for i := range failed {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++
		if _, err := s.replay(ctx, &failed[i]); err != nil {
			report.Failures[failed[i].ID] = err.Error()
			continue
		}
		report.Succeeded++
	}
	return report, nil
}

func (s *Service) replay(ctx context.Context, stored *models.BillingWebhookEvent) (*WebhookResult, error) {
	started := time.Now()
	ev, err := ParseStoredEvent([]byte(stored.PayloadJSON))
	if err != nil {
		s.markProcessed(ctx, stored.ID, err.Error())
		return nil, err
	}

	result := &WebhookResult{EventID: ev.EventID(), EventType: ev.EventType()}
	outcome, err := s.dispatch(ctx, stored.ID, ev)
	if err != nil {
		s.metrics.RecordWebhook(result.EventType, outcomeFailed, time.Since(started))
		return result, err
	}
	result.Outcome = outcome
	s.metrics.RecordWebhook(result.EventType, string(outcome), time.Since(started))
	s.logger.Info("replayed webhook delivery",
		zap.String("delivery_id", stored.ID), zap.String("event_id", result.EventID))
	return result, nil
}

// dispatch runs the router and marks the delivery with the outcome.
func (s *Service) dispatch(ctx context.Context, deliveryID string, ev Event) (Outcome, error) {
	outcome, err := s.router.Dispatch(ctx, ev)
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	s.markProcessed(ctx, deliveryID, errMsg)
	return outcome, err
}

func (s *Service) markProcessed(ctx context.Context, deliveryID, errMsg string) {
	if err := s.repos.WebhookEvent.MarkProcessed(ctx, deliveryID, errMsg); err != nil {
		s.logger.Warn("failed to mark webhook delivery processed",
			zap.String("delivery_id", deliveryID), zap.Error(err))
	}
}

// CreateCheckoutSession delegates to the checkout service.
func (s *Service) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	return s.checkout.CreateCheckoutSession(ctx, req)
}

// CreatePortalSession delegates to the checkout service.
func (s *Service) CreatePortalSession(ctx context.Context, userID string) (*Session, error) {
	return s.checkout.CreatePortalSession(ctx, userID)
}

// CurrentSubscription returns the subscription used for feature gating.
func (s *Service) CurrentSubscription(ctx context.Context, userID string) (*CurrentSubscription, error) {
	subs, err := s.repos.Subscription.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	current := entitlements.Current(subs)
	if current == nil {
		return nil, fmt.Errorf("%w: user %s", ErrSubscriptionNotFound, userID)
	}
	plan, err := s.repos.Plan.GetByID(ctx, current.PlanID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &CurrentSubscription{Subscription: current, Plan: plan}, nil
}

// InvalidatePlanCache drops cached catalog data after plan changes.
func (s *Service) InvalidatePlanCache(ctx context.Context) error {
	return s.catalog.Invalidate(ctx)
}
