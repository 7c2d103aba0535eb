package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"pointer/internal/platform/metrics"
	"pointer/internal/platform/middleware"
)

// RouterConfig carries the ambient pieces the router wraps around handlers.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	// PricingAPI serves GET /api/pricing.
	PricingAPI http.HandlerFunc
}

// NewRouter wires every public route. Page and form routes run behind the
// browser cookie; /api/pricing, /healthz and /metrics do not need it.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", handleHealth)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.PricingAPI != nil {
		r.Get("/api/pricing", cfg.PricingAPI)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.jar.Middleware)

		r.Get("/", h.handleHome)
		r.Post("/start", h.handleStart)
		r.Post("/pricing/{slug}/select", h.handleSelectPlan)

		r.Get("/auth", h.handleAuthPage)
		r.Post("/auth/login", h.handleSignIn)
		r.Post("/auth/signup", h.handleSignUp)
		r.Post("/auth/resend", h.handleResend)
		r.Post("/auth/logout", h.handleSignOut)

		r.Get("/profile", h.handleProfile)

		r.Get("/api/session", h.handleGetSession)
		r.Post("/api/session/refresh", h.handleRefreshSession)
	})

	return otelhttp.NewHandler(r, "pointer.http")
}
