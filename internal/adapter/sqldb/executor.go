package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guillermoBallester/askdb/internal/core/domain"
)

// Executor is the database/sql counterpart of postgres.Executor. Each call
// holds one scoped connection for the life of its read-only transaction.
type Executor struct {
	db           *sql.DB
	maxRows      int
	queryTimeout time.Duration
}

// NewExecutor returns an Executor. maxRows of 0 means no cap.
func NewExecutor(db *sql.DB, maxRows int, queryTimeout time.Duration) *Executor {
	return &Executor{db: db, maxRows: maxRows, queryTimeout: queryTimeout}
}

func (e *Executor) Execute(ctx context.Context, stmt domain.ValidatedStatement) ([]domain.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", e.queryTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("set statement timeout: %w", err)
	}

	rows, err := tx.QueryContext(ctx, stmt.SQL())
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}

	results, err := scanRows(rows, e.maxRows)
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return results, nil
}

func scanRows(rows *sql.Rows, limit int) ([]domain.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := []domain.Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(domain.Row, len(cols))
		for i, col := range cols {
			// Text-format values arrive as []byte, which would render as base64.
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = domain.JSONValue(vals[i])
		}
		result = append(result, row)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}
