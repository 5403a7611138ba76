package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/jiwoo-ai/jiwoo/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	Chat        http.HandlerFunc
	GetMemory   http.HandlerFunc
	ClearMemory http.HandlerFunc
	AddRecord   http.HandlerFunc

	AddCompany      http.HandlerFunc
	SearchCompanies http.HandlerFunc
}

// HealthCheck probes one dependency for readiness.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	ChatRateLimiter    func(http.Handler) http.Handler
	HealthChecks       []HealthCheck
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readiness := readinessHandler(cfg.HealthChecks)
	r.Get("/health/ready", readiness)
	r.Get("/health", readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.ChatRateLimiter != nil {
				r.Use(cfg.ChatRateLimiter)
			}
			r.Post("/chat", h.Chat)
		})

		r.Route("/sessions/{sessionID}/memory", func(r chi.Router) {
			if h.GetMemory != nil {
				r.Get("/", h.GetMemory)
			}
			r.Delete("/", h.ClearMemory)
		})

		if h.AddRecord != nil {
			r.Post("/records", h.AddRecord)
		}

		if h.AddCompany != nil {
			r.Post("/companies", h.AddCompany)
			r.Post("/companies/search", h.SearchCompanies)
		}
	})

	return r
}

func readinessHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy"}
		status := http.StatusOK

		for _, c := range checks {
			if err := c.Check(r.Context()); err != nil {
				health[c.Name] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			health[c.Name] = "healthy"
		}

		JSON(w, status, health)
	}
}
