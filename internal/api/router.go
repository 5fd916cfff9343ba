package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/donorkit/styleforge/internal/api/handlers"
	"github.com/donorkit/styleforge/internal/api/middleware"
	"github.com/donorkit/styleforge/internal/config"
	"github.com/donorkit/styleforge/internal/observability"
	"github.com/donorkit/styleforge/pkg/httputil"
)

// HealthChecker is a dependency the readiness probe pings
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Router holds the HTTP router and its dependencies
type Router struct {
	chi.Router
	logger *zap.Logger
}

// RouterConfig contains configuration for the router
type RouterConfig struct {
	Analyzer handlers.StyleAnalyzer
	Store    handlers.AnalysisStore // nil disables the persistence endpoints
	Limiter  middleware.RateCounter // nil limits in-process only
	Metrics  *observability.Metrics

	// Readiness checks by name, e.g. "database", "redis"
	Checks map[string]HealthChecker

	Logger         *zap.Logger
	Security       config.SecurityConfig
	RateLimits     config.RateLimitConfig
	RequestTimeout time.Duration
	Development    bool
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}

	// Base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Handler)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Handler)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.HTTPMiddleware)
	}
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	if cfg.Security.CORSEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Security.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(cfg.Checks))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	var analyzeMW []func(http.Handler) http.Handler
	if cfg.RateLimits.Enabled {
		limiter := middleware.NewRateLimitMiddleware(
			cfg.Limiter,
			"analyze",
			cfg.RateLimits.AnalysisRequests,
			cfg.RateLimits.AnalysisWindow,
			cfg.Logger,
		)
		analyzeMW = append(analyzeMW, limiter.Handler)
	}

	analysisHandler := handlers.NewAnalysisHandler(cfg.Analyzer, cfg.Store, cfg.Logger, cfg.Development)
	analysisHandler.Routes(r, analyzeMW...)

	return &Router{
		Router: r,
		logger: cfg.Logger,
	}
}

// healthHandler returns basic health status
func healthHandler(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "styleforge-api",
	})
}

// readyHandler checks if all dependencies are ready
func readyHandler(deps map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, len(deps))
		allHealthy := true

		for name, dep := range deps {
			if err := dep.Health(ctx); err != nil {
				checks[name] = "unhealthy: " + err.Error()
				allHealthy = false
				continue
			}
			checks[name] = "healthy"
		}

		status := http.StatusOK
		statusText := "ready"
		if !allHealthy {
			status = http.StatusServiceUnavailable
			statusText = "not ready"
		}

		httputil.JSON(w, status, map[string]any{
			"status": statusText,
			"checks": checks,
		})
	}
}
