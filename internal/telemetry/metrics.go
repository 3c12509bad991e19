package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Instruments implements port.Instrumentation on OTel metric instruments.
type Instruments struct {
	GenerationDuration metric.Float64Histogram
	QueryDuration      metric.Float64Histogram
	Answers            metric.Int64Counter
	ToolDuration       metric.Float64Histogram
}

// NewInstruments creates instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(instrumentationName))
}

func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(instrumentationName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// The SDK hands back a noop instrument alongside any error.
	generation, _ := meter.Float64Histogram("askdb.generation.duration",
		metric.WithDescription("Language model call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	query, _ := meter.Float64Histogram("askdb.query.duration",
		metric.WithDescription("SQL execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	answers, _ := meter.Int64Counter("askdb.answers",
		metric.WithDescription("Questions answered, by outcome"),
	)
	tool, _ := meter.Float64Histogram("askdb.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		GenerationDuration: generation,
		QueryDuration:      query,
		Answers:            answers,
		ToolDuration:       tool,
	}
}

func (i *Instruments) RecordGenerationDuration(ctx context.Context, ms float64) {
	i.GenerationDuration.Record(ctx, ms)
}

func (i *Instruments) RecordQueryDuration(ctx context.Context, ms float64) {
	i.QueryDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementAnswers(ctx context.Context, outcome string) {
	i.Answers.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
