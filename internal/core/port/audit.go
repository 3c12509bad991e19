package port

import "context"

// AuditEntry represents one answered (or failed) question.
type AuditEntry struct {
	RequestID    string
	Source       string
	Question     string
	Model        string
	SQL          string
	Outcome      string
	RowsReturned int
	DurationMS   int64
	Err          error
}

// QueryAuditor records audit events.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, AuditEntry) {}
func (NoopAuditor) Close() error                       { return nil }
