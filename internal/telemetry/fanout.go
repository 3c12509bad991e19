package telemetry

import (
	"context"

	"github.com/guillermoBallester/askdb/internal/core/port"
)

// Fanout forwards every measurement to each of its members.
type Fanout []port.Instrumentation

func (f Fanout) RecordGenerationDuration(ctx context.Context, ms float64) {
	for _, i := range f {
		i.RecordGenerationDuration(ctx, ms)
	}
}

func (f Fanout) RecordQueryDuration(ctx context.Context, ms float64) {
	for _, i := range f {
		i.RecordQueryDuration(ctx, ms)
	}
}

func (f Fanout) IncrementAnswers(ctx context.Context, outcome string) {
	for _, i := range f {
		i.IncrementAnswers(ctx, outcome)
	}
}

func (f Fanout) RecordToolDuration(ctx context.Context, ms float64) {
	for _, i := range f {
		i.RecordToolDuration(ctx, ms)
	}
}
