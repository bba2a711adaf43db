// Package monitoring records errors recovered by the HTTP layer.
package monitoring

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/ports"
)

// Reporter assigns report ids, logs reports and counts them.
type Reporter struct {
	logger  zerolog.Logger
	ids     ports.IDGenerator
	clock   ports.Clock
	reports *prometheus.CounterVec // labelled by method; may be nil
}

// New creates a reporter.
func New(logger zerolog.Logger, ids ports.IDGenerator, clock ports.Clock, reports *prometheus.CounterVec) *Reporter {
	return &Reporter{
		logger:  logger.With().Str("component", "monitoring").Logger(),
		ids:     ids,
		clock:   clock,
		reports: reports,
	}
}

// RegisterServer installs the capture entry.
func (m *Reporter) RegisterServer(r *filter.Registry[filter.Server]) error {
	return extension.CaptureGlobalError.Enqueue(r, "monitoring", m.Capture)
}

// Capture completes the report and records it.
func (m *Reporter) Capture(ctx context.Context, report extension.ErrorReport, req extension.RequestInfo) (extension.ErrorReport, error) {
	if report.ID == "" {
		report.ID = m.ids.New()
	}
	if report.Time.IsZero() {
		report.Time = m.clock.Now()
	}
	if report.Message == "" && report.Err != nil {
		report.Message = report.Err.Error()
	}

	tags := make(map[string]string, len(report.Tags)+1)
	for k, v := range report.Tags {
		tags[k] = v
	}
	if req.RequestID != "" {
		tags["request_id"] = req.RequestID
	}
	report.Tags = tags

	m.logger.Error().
		Err(report.Err).
		Str("report_id", report.ID).
		Str("method", req.Method).
		Str("path", req.Path).
		Str("request_id", req.RequestID).
		Time("at", report.Time).
		Msg(report.Message)

	if m.reports != nil {
		m.reports.WithLabelValues(req.Method).Inc()
	}
	return report, nil
}
