// Package routes registers all HTTP routes for the API.
// Routes are organized by domain for maintainability.
package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vulnwatchio/api/internal/config"
	"github.com/vulnwatchio/api/internal/infra/http/handler"
	"github.com/vulnwatchio/api/internal/infra/http/middleware"
	"github.com/vulnwatchio/api/pkg/logger"
)

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health     *handler.HealthHandler
	Asset      *handler.AssetHandler
	AssetGroup *handler.AssetGroupHandler
	Finding    *handler.FindingHandler
	Rule       *handler.RuleHandler
	Category   *handler.CategoryHandler
	Event      *handler.EventHandler
	Scan       *handler.ScanHandler
}

// New builds the router with the full middleware chain and every
// application route registered.
func New(h Handlers, cfg *config.Config, log *logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics())
	r.Use(middleware.Recover(log))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(&cfg.RateLimit)
		r.Use(limiter.Middleware())
	}

	// Probes and metrics stay outside the API prefix.
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		registerAssetRoutes(r, h.Asset, h.Finding)
		registerAssetGroupRoutes(r, h.AssetGroup)
		registerFindingRoutes(r, h.Finding)
		registerRuleRoutes(r, h.Rule)
		registerCategoryRoutes(r, h.Category)
		registerEventRoutes(r, h.Event)
		registerScanRoutes(r, h.Scan)
	})

	return r
}

// registerAssetRoutes registers asset management and grading endpoints.
func registerAssetRoutes(r chi.Router, h *handler.AssetHandler, findings *handler.FindingHandler) {
	r.Route("/assets", func(r chi.Router) {
		// Fixed paths first so they never match /{id}.
		r.Get("/top-risk", h.TopRisk)

		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)

			r.Get("/risk-grade", h.RiskGrade)
			r.Get("/risk-grade-trend", h.RiskGradeTrend)
			r.Get("/risk-score", h.RiskScore)

			r.Get("/findings", findings.ListByAsset)

			r.Post("/categories/{categoryID}", h.AssignCategory)
			r.Delete("/categories/{categoryID}", h.UnassignCategory)
		})
	})
}

// registerAssetGroupRoutes registers asset group endpoints.
func registerAssetGroupRoutes(r chi.Router, h *handler.AssetGroupHandler) {
	r.Route("/asset-groups", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)

			r.Get("/risk-grade", h.RiskGrade)

			r.Post("/assets", h.AddAssets)
			r.Delete("/assets", h.RemoveAssets)
		})
	})
}

// registerFindingRoutes registers finding lifecycle endpoints.
func registerFindingRoutes(r chi.Router, h *handler.FindingHandler) {
	r.Route("/findings", func(r chi.Router) {
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)

			r.Post("/ack", h.Acknowledge)
			r.Post("/reopen", h.Reopen)
			r.Put("/comments", h.UpdateComments)
			r.Post("/alert", h.FireAlert)
		})
	})
}

// registerRuleRoutes registers alert rule endpoints.
func registerRuleRoutes(r chi.Router, h *handler.RuleHandler) {
	r.Route("/rules", func(r chi.Router) {
		// Fixed paths first so they never match /{id}.
		r.Get("/attributes", h.Attributes)

		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)

			r.Post("/run", h.Run)
			r.Post("/reset-counters", h.ResetCounters)
		})
	})
}

// registerCategoryRoutes registers category tag endpoints.
func registerCategoryRoutes(r chi.Router, h *handler.CategoryHandler) {
	r.Route("/categories", func(r chi.Router) {
		// Fixed paths first so they never match /{id}.
		r.Get("/tree", h.Tree)

		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
	})
}

// registerEventRoutes registers the event log endpoint.
func registerEventRoutes(r chi.Router, h *handler.EventHandler) {
	r.Get("/events", h.List)
}

// registerScanRoutes registers the scanner event intake endpoint.
func registerScanRoutes(r chi.Router, h *handler.ScanHandler) {
	r.Post("/scans/events", h.Event)
}
