package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	RecordGenerationDuration(ctx context.Context, ms float64)
	RecordQueryDuration(ctx context.Context, ms float64)
	IncrementAnswers(ctx context.Context, outcome string)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordGenerationDuration(context.Context, float64) {}
func (NoopInstrumentation) RecordQueryDuration(context.Context, float64)      {}
func (NoopInstrumentation) IncrementAnswers(context.Context, string)          {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)       {}
