package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/freelancedesk/internal/pkg/billing"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/entitlements"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const billingRequestTimeout = 15 * time.Second

// BillingController exposes the billing service over HTTP.
type BillingController struct {
	svc      *billing.Service
	validate *validator.Validate
	logger   *zap.Logger
}

func NewBillingController(svc *billing.Service, logger *zap.Logger) *BillingController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingController{svc: svc, validate: validator.New(), logger: logger}
}

type portalRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// HandleWebhook receives provider webhooks. The body must be the raw,
// unparsed request body for signature verification.
func (bc *BillingController) HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.Body()...)
	signature := c.Get(billing.SignatureHeader)

	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	result, err := bc.svc.HandleWebhook(ctx, rawBody, signature)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidSignature):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		case errors.Is(err, billing.ErrInvalidPayload):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
		}
	}

	if result.Duplicate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// HandleCheckout creates a checkout session and returns its redirect URL.
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	var req billing.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request_body"})
	}
	if err := bc.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "details": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	session, err := bc.svc.CreateCheckoutSession(ctx, req)
	if err != nil {
		return bc.sessionError(c, "checkout", err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"url": session.URL, "session_id": session.ID})
}

// HandlePortal creates a billing portal session for the user.
func (bc *BillingController) HandlePortal(c *fiber.Ctx) error {
	var req portalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request_body"})
	}
	if err := bc.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "details": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	session, err := bc.svc.CreatePortalSession(ctx, req.UserID)
	if err != nil {
		return bc.sessionError(c, "portal", err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"url": session.URL})
}

// HandleCurrentSubscription returns the user's current subscription and limits.
func (bc *BillingController) HandleCurrentSubscription(c *fiber.Ctx) error {
	userID := c.Params("userID")
	current, err := bc.svc.CurrentSubscription(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "subscription_not_found"})
		}
		bc.logger.Error("current subscription lookup failed", zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_lookup_failed"})
	}

	sub := current.Subscription
	resp := fiber.Map{
		"id":                   sub.ID,
		"plan_id":              sub.PlanID,
		"status":               sub.Status,
		"billing_cycle":        sub.BillingCycle,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"current_period_start": formatTimePtr(sub.CurrentPeriodStart),
		"current_period_end":   formatTimePtr(sub.CurrentPeriodEnd),
		"trial_end":            formatTimePtr(sub.TrialEnd),
		"entitled":             entitlements.IsEntitling(sub.Status),
	}
	if current.Plan != nil {
		resp["plan_name"] = current.Plan.Name
		resp["limits"] = entitlements.Limits(current.Plan)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// HandleReplay re-dispatches one stored webhook delivery.
func (bc *BillingController) HandleReplay(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	result, err := bc.svc.Replay(ctx, c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrDeliveryNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "delivery_not_found"})
		case errors.Is(err, billing.ErrInvalidSignature):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "delivery_not_verified"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "replay_failed", "details": err.Error()})
		}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"event_id":   result.EventID,
		"event_type": result.EventType,
		"outcome":    result.Outcome,
	})
}

func (bc *BillingController) sessionError(c *fiber.Ctx, kind string, err error) error {
	switch {
	case errors.Is(err, billing.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed"})
	case errors.Is(err, billing.ErrUnknownUser):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user_not_found"})
	case errors.Is(err, billing.ErrUnknownPlan):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "plan_not_found"})
	case errors.Is(err, billing.ErrNoBillingCustomer):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_billing_customer"})
	}
	bc.logger.Error("billing session creation failed", zap.String("kind", kind), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": kind + "_session_failed"})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
