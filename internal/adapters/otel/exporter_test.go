package otel

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/emiliopalmerini/mcollect/internal/ports"
)

func TestNewExporter_Disabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"disabled", Config{Endpoint: "localhost:4317"}},
		{"no endpoint", Config{Enabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewExporter(context.Background(), tt.cfg); err == nil {
				t.Error("expected error for unusable config")
			}
		})
	}
}

func TestExporter_ExportSessionMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	exp, err := NewExporterWithProvider(provider)
	if err != nil {
		t.Fatalf("NewExporterWithProvider failed: %v", err)
	}
	defer func() { _ = exp.Close(ctx) }()

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	err = exp.ExportSessionMetrics(ctx, &ports.SessionMetrics{
		SessionID:   "s1",
		PersonaID:   3,
		PersonaName: "Jennifer Smith",
		Archetype:   "Hostile",
		Outcome:     "exhausted",
		Iterations:  4,
		BestScore:   6.5,
		TargetScore: 8,
		StartedAt:   start,
		EndedAt:     start.Add(90 * time.Second),
	})
	if err != nil {
		t.Fatalf("ExportSessionMetrics failed: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	found := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = m
		}
	}

	for _, name := range []string{
		"mcollect_improvement_sessions_total",
		"mcollect_improvement_iterations",
		"mcollect_improvement_best_score",
		"mcollect_improvement_duration_seconds",
	} {
		if _, ok := found[name]; !ok {
			t.Errorf("metric %s not recorded", name)
		}
	}

	sum, ok := found["mcollect_improvement_sessions_total"].Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Fatalf("sessions counter = %+v", found["mcollect_improvement_sessions_total"].Data)
	}
	outcome, ok := sum.DataPoints[0].Attributes.Value("outcome")
	if !ok || outcome.AsString() != "exhausted" {
		t.Errorf("outcome attribute = %v", outcome)
	}

	dur, ok := found["mcollect_improvement_duration_seconds"].Data.(metricdata.Histogram[float64])
	if !ok || len(dur.DataPoints) != 1 || dur.DataPoints[0].Sum != 90 {
		t.Errorf("duration histogram = %+v", found["mcollect_improvement_duration_seconds"].Data)
	}
}

func TestNoOpExporter(t *testing.T) {
	var exp ports.MetricsExporter = NewNoOpExporter()
	if err := exp.ExportSessionMetrics(context.Background(), &ports.SessionMetrics{}); err != nil {
		t.Errorf("ExportSessionMetrics = %v", err)
	}
	if err := exp.Close(context.Background()); err != nil {
		t.Errorf("Close = %v", err)
	}
}
