package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// reg is served at /metrics and also receives the request metrics.
func NewRouter(h *Handlers, reg *prometheus.Registry, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /status", h.Status)
	mux.HandleFunc("GET /archives", h.Archives)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	m := newHTTPMetrics(reg)
	chain := ChainMiddleware(
		InstrumentMiddleware(logger, m),
		RecoveryMiddleware(logger, m),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
