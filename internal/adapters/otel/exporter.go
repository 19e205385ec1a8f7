package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emiliopalmerini/mcollect/internal/ports"
)

const (
	serviceName    = "mcollect"
	serviceVersion = "1.0.0"
)

// Exporter exports self-improvement session metrics to an OTEL Collector.
type Exporter struct {
	provider    *sdkmetric.MeterProvider
	instruments *instruments
}

type instruments struct {
	sessionsTotal metric.Int64Counter
	iterationHist metric.Int64Histogram
	bestScoreHist metric.Float64Histogram
	durationHist  metric.Float64Histogram
}

// NewExporter creates a new OTEL metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	inst, err := newInstruments(provider.Meter(serviceName))
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	return &Exporter{provider: provider, instruments: inst}, nil
}

// NewExporterWithProvider builds an exporter on an existing meter provider.
// The caller keeps ownership of the provider's reader.
func NewExporterWithProvider(provider *sdkmetric.MeterProvider) (*Exporter, error) {
	inst, err := newInstruments(provider.Meter(serviceName))
	if err != nil {
		return nil, err
	}
	return &Exporter{provider: provider, instruments: inst}, nil
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	sessionsTotal, err := meter.Int64Counter(
		"mcollect_improvement_sessions_total",
		metric.WithDescription("Self-improvement sessions that reached a terminal state"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}

	iterationHist, err := meter.Int64Histogram(
		"mcollect_improvement_iterations",
		metric.WithDescription("Iterations run per session"),
		metric.WithUnit("{iteration}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating iterations histogram: %w", err)
	}

	bestScoreHist, err := meter.Float64Histogram(
		"mcollect_improvement_best_score",
		metric.WithDescription("Best overall score reached per session"),
		metric.WithUnit("{score}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating best score histogram: %w", err)
	}

	durationHist, err := meter.Float64Histogram(
		"mcollect_improvement_duration_seconds",
		metric.WithDescription("Session duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &instruments{
		sessionsTotal: sessionsTotal,
		iterationHist: iterationHist,
		bestScoreHist: bestScoreHist,
		durationHist:  durationHist,
	}, nil
}

// ExportSessionMetrics records the outcome of a finished session.
func (e *Exporter) ExportSessionMetrics(ctx context.Context, m *ports.SessionMetrics) error {
	attrs := []attribute.KeyValue{
		attribute.Int64("persona_id", m.PersonaID),
		attribute.String("persona_name", m.PersonaName),
		attribute.String("archetype", m.Archetype),
		attribute.String("outcome", m.Outcome),
		attribute.Bool("success", m.Success),
	}
	opt := metric.WithAttributes(attrs...)

	e.instruments.sessionsTotal.Add(ctx, 1, opt)
	e.instruments.iterationHist.Record(ctx, m.Iterations, opt)
	e.instruments.bestScoreHist.Record(ctx, m.BestScore, opt)

	if !m.EndedAt.IsZero() && !m.StartedAt.IsZero() {
		e.instruments.durationHist.Record(ctx, m.EndedAt.Sub(m.StartedAt).Seconds(), opt)
	}

	return nil
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
