package router

import (
	"github.com/ManuelReschke/freelancedesk/app/controllers"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the handlers and collectors the routes are bound to.
type Dependencies struct {
	Billing *controllers.BillingController
	Metrics *metrics.Collector
	// OperatorUser and OperatorPassword protect /metrics when both are set.
	// The webhook replay route is only mounted when both are set.
	OperatorUser     string
	OperatorPassword string
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
