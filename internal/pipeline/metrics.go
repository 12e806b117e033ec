package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "sentilyst/pipeline"

// Metrics records stage latency and analysis outcomes. Without an SDK
// provider installed the global meter is a no-op.
type Metrics struct {
	StageDuration metric.Float64Histogram
	Analyses      metric.Int64Counter
}

func NewMetrics(meter metric.Meter) Metrics {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	stage, err := meter.Float64Histogram("sentilyst_pipeline_stage_seconds",
		metric.WithDescription("Duration of each analysis stage"),
		metric.WithUnit("s"))
	if err != nil {
		slog.Warn("[Pipeline] Failed to create stage duration histogram", slog.String("error", err.Error()))
		stage = nil
	}
	analyses, err := meter.Int64Counter("sentilyst_analyses_total",
		metric.WithDescription("Completed analysis requests by outcome"))
	if err != nil {
		slog.Warn("[Pipeline] Failed to create analyses counter", slog.String("error", err.Error()))
		analyses = nil
	}
	return Metrics{StageDuration: stage, Analyses: analyses}
}

func (m Metrics) observeStage(ctx context.Context, stage string, start time.Time) {
	if m.StageDuration == nil {
		return
	}
	m.StageDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)))
}

func (m Metrics) countOutcome(ctx context.Context, outcome string) {
	if m.Analyses == nil {
		return
	}
	m.Analyses.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
