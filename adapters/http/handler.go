// Package http provides the HTTP surface: settings API, auth callbacks and pages.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/artpar/saasgate/adapters/metrics"
	_ "github.com/artpar/saasgate/docs/swagger" // swagger docs
	"github.com/artpar/saasgate/domain/filter"
)

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
	Service string `json:"service" example:"saasgate"`
}

// Health returns a liveness check.
//
//	@Summary		Liveness check
//	@Description	Returns OK if the service is running
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/healthz [get]
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// VersionHandler returns the service version.
//
//	@Summary		Get service version
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	VersionResponse
//	@Router			/version [get]
func VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{Version: version, Service: "saasgate"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RouterConfig holds the handlers and options for the router.
type RouterConfig struct {
	Settings  *SettingsHandler
	Callbacks *CallbackHandler
	Pages     *PageHandler // Optional; without it / and unknown paths answer JSON 404

	// ServerRegistrars build the per-request server registry.
	ServerRegistrars []filter.Registrar[filter.Server]

	Metrics        *metrics.Collector // Optional
	MetricsHandler http.Handler       // Defaults to promhttp.Handler() when Metrics is set
	MetricsPath    string             // Default: /metrics
	EnableOpenAPI  bool
	Version        string
	RequestTimeout time.Duration // Default: 60s
}

// NewRouter creates the main HTTP router.
func NewRouter(logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	// A nil *Collector must not become a non-nil Observer.
	var observer filter.Observer
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
	}
	r.Use(NewRegistryMiddleware(observer, cfg.ServerRegistrars, logger))
	r.Use(NewRecoverMiddleware(logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	// System endpoints
	r.Get("/healthz", Health)
	r.Get("/version", VersionHandler(cfg.Version))

	if cfg.Metrics != nil {
		handler := cfg.MetricsHandler
		if handler == nil {
			handler = promhttp.Handler()
		}
		r.Handle(cfg.MetricsPath, handler)
	}

	if cfg.EnableOpenAPI {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	if cfg.Settings != nil {
		r.Mount("/settings", cfg.Settings.Router())
	}
	if cfg.Callbacks != nil {
		r.Get("/auth/*", cfg.Callbacks.ServeHTTP)
	}

	if cfg.Pages != nil {
		r.Get("/", cfg.Pages.Home)
		r.NotFound(cfg.Pages.NotFound)
	}

	return r
}
