package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-platform/internal/api/http/handlers"
	"github.com/spec-kit/incident-platform/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Ingestion      *handlers.IngestionHandler
	Tickets        *handlers.TicketsHandler
	Vendors        *handlers.VendorsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Ingestion endpoints authenticate with
// connector tokens inside the payload; board endpoints require an operator
// bearer token.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	ingest := app.Group("/ingest")
	ingest.Post("/generic", cfg.Ingestion.IngestGeneric)
	ingest.Post("/zabbix", cfg.Ingestion.IngestZabbix)

	board := app.Group("", cfg.AuthMiddleware.Handle)
	board.Post("/tickets", cfg.Tickets.CreateTicket)
	board.Get("/tickets", cfg.Tickets.ListTickets)
	board.Get("/tickets/:id", cfg.Tickets.GetTicket)
	board.Post("/tickets/:id/transition", cfg.Tickets.Transition)
	board.Get("/vendors", auth.RequireAdmin(), cfg.Vendors.List)
	board.Get("/vendors/:id/columns", cfg.Vendors.Columns)
}
