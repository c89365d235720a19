package router

import (
	"time"

	"github.com/ManuelReschke/freelancedesk/internal/pkg/constants"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	bc := h.deps.Billing
	if bc == nil {
		return
	}

	billingGroup := api.Group(constants.BillingRoute)
	// Provider deliveries are not rate limited.
	billingGroup.Post(constants.BillingWebhookRoute, bc.HandleWebhook)

	limited := limiter.New(limiter.Config{Max: 30, Expiration: time.Minute})
	billingGroup.Post(constants.BillingCheckoutRoute, limited, bc.HandleCheckout)
	billingGroup.Post(constants.BillingPortalRoute, limited, bc.HandlePortal)
	billingGroup.Get(constants.BillingSubscriptionRoute, limited, bc.HandleCurrentSubscription)
	// Replay is an operator action and is only mounted behind credentials.
	if auth := operatorAuth(h.deps); auth != nil {
		billingGroup.Post(constants.BillingReplayRoute, append(auth, bc.HandleReplay)...)
	}
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
