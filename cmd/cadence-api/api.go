// Package main provides the Cadence API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/cadence/pkg/campaign"
	"github.com/dukex/cadence/pkg/eventbus"
	"github.com/dukex/cadence/pkg/persistence"
	"github.com/dukex/cadence/pkg/protocol"
	"github.com/dukex/cadence/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	dispatcher  protocol.Dispatcher
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	dispatcher protocol.Dispatcher,
) *API {
	return &API{
		logger:      logger,
		persistence: store,
		eventBus:    eventBus,
		dispatcher:  dispatcher,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	engine := campaign.NewEngine(a.persistence, a.dispatcher, a.logger)
	campaignService := campaign.NewService(a.persistence, engine, a.logger)

	handlers := web.NewAPIHandlers(campaignService, a.persistence, a.eventBus, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cadence API")
	})

	campaigns := app.Group("/campaigns")
	campaigns.Post("/", handlers.StartCampaign)
	campaigns.Get("/:id", handlers.GetCampaign)

	app.Post("/webhooks/events", handlers.ReceiveWebhookEvent)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
