package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"escuela/internal/platform/metrics"
	"escuela/internal/platform/middleware"
	"escuela/pkg/platform/httputil"
	authmw "escuela/pkg/platform/middleware/auth"
	"escuela/pkg/platform/middleware/metadata"
	"escuela/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries everything the router wires besides the handler.
type RouterConfig struct {
	Logger    *slog.Logger
	Validator authmw.JWTValidator
	Metrics   *metrics.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Health is pinged by /healthz.
	Health HealthChecker
	// TrustedProxies may report the client address in forwarding headers.
	TrustedProxies          []netip.Prefix
	PublicDepartmentListing bool
}

// NewRouter builds the chi router with the shared middleware chain.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(metadata.NewResolver(cfg.TrustedProxies).ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.CORS)

	r.Get("/healthz", healthHandler(cfg.Health, cfg.Logger))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	h.Register(r, authmw.RequireAuth(cfg.Validator, cfg.Logger), cfg.PublicDepartmentListing)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Envelope{Success: false, Message: "Ruta no encontrada"})
	})
	return r
}

func healthHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.Envelope{Success: false, Message: "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{Success: true, Message: "ok"})
	}
}
