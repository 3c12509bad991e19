// Package audit records one NDJSON line per answered question.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/askdb/internal/core/port"
)

// fileEntry is the NDJSON-serializable form of an audit record.
type fileEntry struct {
	Timestamp    string  `json:"ts"`
	RequestID    string  `json:"request_id"`
	Source       string  `json:"source,omitempty"`
	Question     string  `json:"question"`
	Model        string  `json:"model"`
	SQL          string  `json:"sql,omitempty"`
	Outcome      string  `json:"outcome"`
	RowsReturned int     `json:"rows_returned"`
	DurationMS   int64   `json:"duration_ms"`
	Error        *string `json:"error"`
}

// FileAuditor appends audit entries as NDJSON. Writes are serialized, so one
// FileAuditor can be shared by concurrent requests.
type FileAuditor struct {
	mu  sync.Mutex
	w   io.WriteCloser
	enc *json.Encoder
	now func() time.Time
}

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return newAuditor(f), nil
}

func newAuditor(w io.WriteCloser) *FileAuditor {
	return &FileAuditor{
		w:   w,
		enc: json.NewEncoder(w),
		now: time.Now,
	}
}

func (a *FileAuditor) Record(_ context.Context, entry port.AuditEntry) {
	fe := fileEntry{
		Timestamp:    a.now().UTC().Format(time.RFC3339Nano),
		RequestID:    entry.RequestID,
		Source:       entry.Source,
		Question:     entry.Question,
		Model:        entry.Model,
		SQL:          entry.SQL,
		Outcome:      entry.Outcome,
		RowsReturned: entry.RowsReturned,
		DurationMS:   entry.DurationMS,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(fe) // best-effort; audit I/O never fails a request
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.w.Close()
}
