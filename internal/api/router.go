package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modelgate-platform/modelgate/internal/database"
	"github.com/modelgate-platform/modelgate/internal/events"
	mw "github.com/modelgate-platform/modelgate/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Tier catalog
	PublicListTiers http.HandlerFunc
	AdminListTiers  http.HandlerFunc
	GetTier         http.HandlerFunc
	CreateTier      http.HandlerFunc
	UpdateTier      http.HandlerFunc
	DeleteTier      http.HandlerFunc

	// Chat handlers
	CreateChat   http.HandlerFunc
	ListChats    http.HandlerFunc
	GetChat      http.HandlerFunc
	ListMessages http.HandlerFunc
	SendMessage  http.HandlerFunc

	// Quota standing
	MyQuota http.HandlerFunc

	// Admin user management
	ListUsers  http.HandlerFunc
	GetUser    http.HandlerFunc
	AssignTier http.HandlerFunc

	// Admin audit log
	ListAuditLogs http.HandlerFunc

	// Session middleware (bearer token to identity)
	SessionMiddleware func(http.Handler) http.Handler

	// Admin gate, mounted after SessionMiddleware
	AdminOnly func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	StaticDir          string
	AdminRateLimiter   func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, eventsClient *events.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware. PolicyBypass runs first so the liveness probe and
	// static assets skip everything below it.
	r.Use(mw.PolicyBypass(cfg.StaticDir))
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Readiness probe checks DB and NATS
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if eventsClient != nil && !eventsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if eventsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public catalog: active tiers only, no identity required
		r.Get("/tiers", h.PublicListTiers)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.SessionMiddleware)

			r.Get("/me/quota", h.MyQuota)

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", h.CreateChat)
				r.Get("/", h.ListChats)

				r.Route("/{chatID}", func(r chi.Router) {
					r.Get("/", h.GetChat)
					r.Get("/messages", h.ListMessages)
					r.Post("/messages", h.SendMessage)
				})
			})

			// Admin surface: registry mutations and cross-user reads
			r.Route("/admin", func(r chi.Router) {
				r.Use(h.AdminOnly)
				if cfg.AdminRateLimiter != nil {
					r.Use(cfg.AdminRateLimiter)
				}

				r.Route("/tiers", func(r chi.Router) {
					r.Get("/", h.AdminListTiers)
					r.Post("/", h.CreateTier)
					r.Get("/{tierID}", h.GetTier)
					r.Put("/{tierID}", h.UpdateTier)
					r.Delete("/{tierID}", h.DeleteTier)
				})

				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.ListUsers)
					r.Get("/{userID}", h.GetUser)
					r.Put("/{userID}/tier", h.AssignTier)
				})

				r.Get("/audit", h.ListAuditLogs)
			})
		})
	})

	return r
}
