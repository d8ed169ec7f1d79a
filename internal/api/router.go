// Package api provides the HTTP API for pushrelay.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pushrelay/pushrelay/internal/api/handler"
	"github.com/pushrelay/pushrelay/internal/api/middleware"
	"github.com/pushrelay/pushrelay/internal/auth"
	"github.com/pushrelay/pushrelay/internal/dispatch"
	"github.com/pushrelay/pushrelay/internal/history"
	"github.com/pushrelay/pushrelay/internal/token"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// JWTService enables service-to-service auth on the delivery endpoints
	// when non-nil.
	JWTService *auth.JWTService

	// AdminSecret gates the platform-sweep endpoint.
	AdminSecret string

	// DB is probed by the readiness check; nil for in-memory deployments.
	DB handler.Pinger

	Dispatcher     *dispatch.Service
	TokenService   *token.Service
	HistoryService *history.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "pushrelay"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB)
	notifyHandler := handler.NewNotifyHandler(cfg.Dispatcher)
	tokenHandler := handler.NewTokenHandler(cfg.TokenService)
	historyHandler := handler.NewHistoryHandler(cfg.HistoryService)

	// Service-to-service auth; passthrough when no signing key is configured.
	serviceAuth := middleware.ServiceAuth(cfg.JWTService)

	// Rate limits per endpoint category
	notifyRateLimit := middleware.RateLimitByCaller(middleware.NotifyRateLimit) // 60 req/min
	adminRateLimit := middleware.RateLimitByIP(middleware.AdminRateLimit)       // 10 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// Ops endpoints (public)
	r.Route("/ops", func(r chi.Router) {
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/ready", opsHandler.ReadinessCheck)
	})

	// Delivery endpoints
	r.Route("/notify", func(r chi.Router) {
		r.Use(serviceAuth)
		r.Use(notifyRateLimit)
		r.Post("/", notifyHandler.Notify)
		r.Post("/deliver-only", notifyHandler.DeliverOnly)
	})

	// Token registry endpoints
	r.Route("/tokens", func(r chi.Router) {
		r.With(serviceAuth, standardRateLimit).Post("/register", tokenHandler.Register)
		r.With(middleware.AdminSecret(cfg.AdminSecret), adminRateLimit).
			Post("/invalidate-by-platform", tokenHandler.InvalidateByPlatform)
	})

	// Notification history endpoints
	r.Route("/notifications", func(r chi.Router) {
		r.Use(serviceAuth)
		r.Use(standardRateLimit)
		r.Get("/", historyHandler.List)
		r.Post("/{notificationId}/read", historyHandler.MarkRead)
	})

	return r
}
