package router

import (
	"github.com/ManuelReschke/freelancedesk/internal/pkg/constants"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	if h.deps.Metrics == nil {
		return
	}
	handlers := append(operatorAuth(h.deps), adaptor.HTTPHandler(h.deps.Metrics.Handler()))
	app.Get(constants.MetricsRoute, handlers...)
}

// operatorAuth returns basic auth middleware when operator credentials are configured.
func operatorAuth(deps Dependencies) []fiber.Handler {
	if deps.OperatorUser == "" || deps.OperatorPassword == "" {
		return nil
	}
	return []fiber.Handler{basicauth.New(basicauth.Config{
		Users: map[string]string{deps.OperatorUser: deps.OperatorPassword},
	})}
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
