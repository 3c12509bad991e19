package port

import (
	"context"

	"github.com/guillermoBallester/askdb/internal/core/domain"
)

// QueryExecutor runs a validated statement read-only and returns every row
// materialized. Implementations release their connection before returning.
type QueryExecutor interface {
	Execute(ctx context.Context, stmt domain.ValidatedStatement) ([]domain.Row, error)
}
