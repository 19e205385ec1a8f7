package ports

import (
	"context"
	"time"
)

// MetricsExporter exports improvement-session metrics to an external observability system.
type MetricsExporter interface {
	// ExportSessionMetrics exports the outcome of a session that reached a terminal state.
	ExportSessionMetrics(ctx context.Context, m *SessionMetrics) error
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}

// SessionMetrics describes one finished self-improvement session.
type SessionMetrics struct {
	SessionID   string
	PersonaID   int64
	PersonaName string
	Archetype   string
	Outcome     string

	Iterations  int64
	BestScore   float64
	TargetScore float64
	Success     bool

	StartedAt time.Time
	EndedAt   time.Time
}
