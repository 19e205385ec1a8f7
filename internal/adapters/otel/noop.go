package otel

import (
	"context"

	"github.com/emiliopalmerini/mcollect/internal/ports"
)

// NoOpExporter discards session metrics. It is used when MCOLLECT_OTEL_ENABLED
// is off or the collector cannot be reached at startup.
type NoOpExporter struct{}

func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

// ExportSessionMetrics drops the finished session's outcome.
func (e *NoOpExporter) ExportSessionMetrics(ctx context.Context, m *ports.SessionMetrics) error {
	return nil
}

func (e *NoOpExporter) Close(ctx context.Context) error {
	return nil
}
