package handler

import (
	"database/sql"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"github.com/redis/go-redis/v9"
)

// Dependencies are the collaborators behind the HTTP routes.
type Dependencies struct {
	Requests       RequestService
	Quotes         QuoteService
	Garages        GarageService
	Settings       SettingsService
	Statistics     StatisticsSource
	Errors         ErrorLog
	Performance    PerformanceLogger
	Reference      ReferenceData
	CSRF           CSRFIssuer
	Inspector      RequestInspector
	Logins         LoginGuard
	Health         HealthChecker
	Incidents      IncidentLogger
	AdminKeyHash   string
	TrustedProxies security.TrustedProxies
	Metrics        *observability.Metrics
	SQLDB          *sql.DB
	Redis          *redis.Client
}

// RegisterRoutes mounts health, metrics and the v1 API on app.
func RegisterRoutes(app *fiber.App, deps Dependencies) error {
	if deps.Logins == nil {
		return fmt.Errorf("login guard is required")
	}
	requests, err := NewRequestHandler(deps.Requests, deps.Quotes, deps.Garages)
	if err != nil {
		return err
	}
	admin, err := NewAdminHandler(deps.Settings, deps.Statistics, deps.Errors)
	if err != nil {
		return err
	}
	reference, err := NewReferenceHandler(deps.Reference, deps.CSRF)
	if err != nil {
		return err
	}

	app.Use(Recover(deps.Incidents))
	if deps.Metrics != nil {
		app.Use(deps.Metrics.HTTPMiddleware())
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}
	RegisterHealthRoutes(app, deps.SQLDB, deps.Redis, deps.Health)

	v1 := app.Group("/v1", RequestContext(deps.Inspector, deps.TrustedProxies))
	if deps.Performance != nil {
		v1.Use(SlowRequests(deps.Performance, 0))
	}
	v1.Post("/requests", requests.SubmitRequest)
	v1.Get("/requests/:requestId", requests.GetRequest)
	v1.Post("/requests/:requestId/feedback", requests.SubmitFeedback)
	v1.Post("/quotes", requests.SubmitQuote)
	v1.Post("/garages", requests.RegisterGarage)
	v1.Get("/vehicles/makes", reference.ListMakes)
	v1.Get("/vehicles/models", reference.ListModels)
	v1.Get("/vehicles/search", reference.SearchVehicles)
	v1.Get("/products/:productId/vehicles", reference.ListProductVehicles)
	v1.Get("/products/:productId/compatibility", reference.CheckCompatibility)
	v1.Get("/emirates", reference.ListEmirates)
	v1.Get("/csrf", reference.IssueCSRF)

	adminGroup := v1.Group("/admin", AdminAuth(deps.Logins, deps.AdminKeyHash))
	adminGroup.Get("/requests", requests.ListRequests)
	adminGroup.Patch("/requests/:requestId/status", requests.ChangeStatus)
	adminGroup.Get("/settings", admin.GetSettings)
	adminGroup.Put("/settings", admin.UpdateSettings)
	adminGroup.Get("/statistics", admin.Statistics)
	adminGroup.Get("/errors", admin.ErrorStatistics)
	adminGroup.Post("/errors/resolve", admin.ResolveErrors)

	return nil
}
