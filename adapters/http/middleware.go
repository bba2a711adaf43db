package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/adapters/metrics"
	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/pkg/jsonapi"
)

// internalPath reports whether path serves operators rather than users.
// Internal paths are neither logged nor measured.
func internalPath(path, metricsPath string) bool {
	return path == "/healthz" || path == metricsPath || strings.HasPrefix(path, "/swagger")
}

// NewLoggingMiddleware creates middleware that logs HTTP requests.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if internalPath(r.URL.Path, metricsPath) {
				return
			}

			event := logger.Debug()
			if ww.Status() >= http.StatusInternalServerError {
				event = logger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// NewMetricsMiddleware creates middleware that records request metrics.
// Requests are labelled with the chi route pattern so path parameters do not
// explode label cardinality.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if internalPath(r.URL.Path, metricsPath) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.RequestsTotal.WithLabelValues(r.Method, route, metrics.StatusClass(status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// NewRegistryMiddleware builds a sealed server registry for every request
// and stores it in the request context.
func NewRegistryMiddleware(observer filter.Observer, registrars []filter.Registrar[filter.Server], logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg, err := filter.Setup(observer, registrars...)
			if err != nil {
				logger.Error().Err(err).Str("path", r.URL.Path).Msg("server registry setup failed")
				jsonapi.WriteError(w, jsonapi.ErrInternal(""))
				return
			}
			next.ServeHTTP(w, r.WithContext(filter.WithServer(r.Context(), reg)))
		})
	}
}

// NewRecoverMiddleware recovers panics, hands them to capture_global_error
// and answers 500 with the report id.
func NewRecoverMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				report := captureError(r, rec, logger)

				b := jsonapi.NewError(http.StatusInternalServerError, "internal_error", "Internal Server Error").
					Detail("An internal error occurred")
				if report.ID != "" {
					b = b.ID(report.ID).Meta("report_id", report.ID)
				}
				jsonapi.WriteError(w, b.Build())
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// captureError applies capture_global_error. Failures of the chain itself are
// logged and the partially completed report is discarded.
func captureError(r *http.Request, rec any, logger zerolog.Logger) extension.ErrorReport {
	err, ok := rec.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", rec)
	}

	report := extension.ErrorReport{
		Err:  err,
		Tags: map[string]string{"kind": "panic"},
	}
	info := extension.RequestInfo{
		Method:    r.Method,
		Path:      r.URL.Path,
		RequestID: middleware.GetReqID(r.Context()),
	}

	logger.Debug().Bytes("stack", debug.Stack()).Str("request_id", info.RequestID).Msg("recovered panic")

	// Reporting runs even when the client has gone away.
	ctx := context.WithoutCancel(r.Context())
	out, cerr := extension.CaptureGlobalError.Apply(ctx, filter.ServerFrom(ctx), report, info)
	if cerr != nil {
		logger.Error().Err(cerr).AnErr("panic", err).Str("request_id", info.RequestID).Msg("capture_global_error failed")
		return extension.ErrorReport{}
	}
	return out
}
