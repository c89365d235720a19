package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/freelancedesk/app/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CheckoutRequest asks for a subscription checkout for a user and plan.
type CheckoutRequest struct {
	UserID       string `json:"user_id" validate:"required"`
	PlanID       string `json:"plan_id" validate:"required"`
	BillingCycle string `json:"billing_cycle" validate:"required,oneof=monthly annually"`
}

// CheckoutService creates provider-hosted checkout and portal sessions.
type CheckoutService struct {
	profiles  repository.ProfileRepository
	plans     repository.PlanRepository
	subs      repository.SubscriptionRepository
	customers *CustomerResolver
	provider  Provider
	cfg       Config
	logger    *zap.Logger
}

func NewCheckoutService(repos *repository.Repositories, customers *CustomerResolver, provider Provider, cfg Config, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		profiles:  repos.Profile,
		plans:     repos.Plan,
		subs:      repos.Subscription,
		customers: customers,
		provider:  provider,
		cfg:       cfg,
		logger:    orNop(logger),
	}
}

// CreateCheckoutSession prices the plan for the requested cycle and opens a
// subscription-mode checkout. User, plan and cycle travel as metadata on both
// the session and the resulting subscription.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	cycle := normalizeCycle(req.BillingCycle)
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.PlanID) == "" || cycle == "" {
		return nil, fmt.Errorf("%w: user_id, plan_id and billing_cycle are required", ErrInvalidRequest)
	}

	profile, err := s.profiles.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, req.UserID)
		}
		return nil, err
	}
	plan, err := s.plans.GetByID(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, req.PlanID)
		}
		return nil, err
	}

	customerID, err := s.customers.EnsureCustomer(ctx, profile)
	if err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID:  customerID,
		ProductName: plan.Name,
		Currency:    s.cfg.Currency,
		UnitAmount:  MajorToMinor(plan.PriceFor(cycle)),
		Interval:    intervalForCycle(cycle),
		SuccessURL:  s.cfg.SuccessURL,
		CancelURL:   s.cfg.CancelURL,
		Metadata: map[string]string{
			MetadataUserID:       profile.ID,
			MetadataPlanID:       plan.ID,
			MetadataBillingCycle: cycle,
		},
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("checkout session created",
		zap.String("user_id", profile.ID),
		zap.String("plan_id", plan.ID),
		zap.String("billing_cycle", cycle),
		zap.String("session_id", session.ID))
	return session, nil
}

// CreatePortalSession opens the provider billing portal for the user's most
// recent billing customer.
func (s *CheckoutService) CreatePortalSession(ctx context.Context, userID string) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	customerID, err := s.subs.LatestCustomerID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoBillingCustomer, userID)
		}
		return nil, err
	}
	return s.provider.CreatePortalSession(ctx, customerID, s.cfg.PortalReturnURL)
}
