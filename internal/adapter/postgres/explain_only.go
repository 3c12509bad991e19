package postgres

import (
	"context"

	"github.com/guillermoBallester/askdb/internal/core/domain"
	"github.com/guillermoBallester/askdb/internal/core/port"
)

// ExplainOnlyExecutor returns the query plan instead of data: the validated
// statement is prefixed with EXPLAIN before it reaches the inner executor.
type ExplainOnlyExecutor struct {
	inner port.QueryExecutor
}

func NewExplainOnlyExecutor(inner port.QueryExecutor) *ExplainOnlyExecutor {
	return &ExplainOnlyExecutor{inner: inner}
}

func (e *ExplainOnlyExecutor) Execute(ctx context.Context, stmt domain.ValidatedStatement) ([]domain.Row, error) {
	return e.inner.Execute(ctx, domain.Explain(stmt))
}
