package main

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ManuelReschke/freelancedesk/app/controllers"
	"github.com/ManuelReschke/freelancedesk/app/repository"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/billing"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/cache"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/database"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/env"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/logging"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/metrics"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/router"
)

func main() {
	env.SetupEnvFile()
	log := logging.MustNew()
	defer func() { _ = log.Sync() }()

	app := NewApplication(log)
	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	log.Info("starting server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func NewApplication(log *zap.Logger) *fiber.App {
	db := database.SetupDatabase(log)
	rdb := cache.SetupCache(log)
	repository.InitializeFactory(db)

	cfg := billing.ConfigFromEnv()
	if cfg.WebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET is empty, every webhook delivery will be rejected")
	}
	collector := metrics.NewCollector()
	operatorUser, operatorPassword := env.GetEnv("OPERATOR_USER", ""), env.GetEnv("OPERATOR_PASSWORD", "")
	if operatorUser == "" || operatorPassword == "" {
		log.Warn("OPERATOR_USER or OPERATOR_PASSWORD is empty, webhook replay route is disabled and /metrics is public")
	}

	svc := billing.NewService(cfg, billing.Dependencies{
		Repos:    repository.GetGlobalRepositories(),
		Provider: billing.NewStripeProvider(cfg.SecretKey),
		Redis:    rdb,
		Metrics:  collector,
		Logger:   log,
	})

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20, // provider payloads stay well below 1 MiB
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Billing:          controllers.NewBillingController(svc, log),
		Metrics:          collector,
		OperatorUser:     operatorUser,
		OperatorPassword: operatorPassword,
	})

	return app
}
