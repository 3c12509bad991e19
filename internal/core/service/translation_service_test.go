package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/guillermoBallester/askdb/internal/core/domain"
	"github.com/guillermoBallester/askdb/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fakes ---

type fakeModel struct {
	reply string
	err   error
	panic bool

	mu        sync.Mutex
	calls     int
	lastModel string
	lastMsgs  []port.Message
}

func (m *fakeModel) Chat(_ context.Context, model string, messages []port.Message) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastModel = model
	m.lastMsgs = messages
	m.mu.Unlock()
	if m.panic {
		panic("model exploded")
	}
	return m.reply, m.err
}

type fakeExecutor struct {
	rows  []domain.Row
	err   error
	panic bool

	calls   atomic.Int32
	mu      sync.Mutex
	lastSQL string
}

func (e *fakeExecutor) Execute(_ context.Context, stmt domain.ValidatedStatement) ([]domain.Row, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.lastSQL = stmt.SQL()
	e.mu.Unlock()
	if e.panic {
		panic("driver bug")
	}
	return e.rows, e.err
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []port.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, e port.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) Close() error { return nil }

type countingInst struct {
	port.NoopInstrumentation
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *countingInst) IncrementAnswers(_ context.Context, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[outcome]++
}

type rejectAll struct{ err error }

func (r rejectAll) Check(domain.ValidatedStatement) error { return r.err }

func newService(model port.LanguageModel, exec port.QueryExecutor, opts ...Option) *TranslationService {
	return NewTranslationService(model, "llama3.2", domain.NewStatementValidator(), exec, testLogger(), opts...)
}

// --- tests ---

func TestAnswer_Success(t *testing.T) {
	model := &fakeModel{reply: "SELECT name, price FROM products ORDER BY price DESC LIMIT 5;"}
	exec := &fakeExecutor{rows: []domain.Row{
		{"name": "Laptop", "price": 1200.0},
		{"name": "Phone", "price": 800.0},
	}}
	svc := newService(model, exec)

	r := svc.Answer(context.Background(), "List top 5 products by price")

	require.True(t, r.OK)
	assert.Equal(t, "SELECT name, price FROM products ORDER BY price DESC LIMIT 5", r.SQL)
	assert.Equal(t, exec.rows, r.Rows)
	assert.Equal(t, "SELECT name, price FROM products ORDER BY price DESC LIMIT 5", exec.lastSQL)

	assert.Equal(t, 1, model.calls)
	assert.Equal(t, "llama3.2", model.lastModel)
	require.Len(t, model.lastMsgs, 1)
	assert.Equal(t, "user", model.lastMsgs[0].Role)
	assert.Contains(t, model.lastMsgs[0].Content, `Question: "List top 5 products by price"`)
	assert.Contains(t, model.lastMsgs[0].Content, "Table: order_items")
}

func TestAnswer_FencedOutput(t *testing.T) {
	model := &fakeModel{reply: "```sql\nSELECT COUNT(*) AS n FROM users;\n```"}
	exec := &fakeExecutor{rows: []domain.Row{{"n": int64(3)}}}

	r := newService(model, exec).Answer(context.Background(), "how many users?")

	require.True(t, r.OK)
	assert.Equal(t, "SELECT COUNT(*) AS n FROM users", r.SQL)
}

func TestAnswer_GenerationFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("dial tcp 127.0.0.1:11434: connection refused")}
	exec := &fakeExecutor{}

	r := newService(model, exec).Answer(context.Background(), "anything")

	require.False(t, r.OK)
	require.NotNil(t, r.Failure)
	assert.Equal(t, domain.StageGeneration, r.Failure.Stage)
	assert.Contains(t, r.Failure.Message, "model call failed")
	assert.Contains(t, r.Failure.Message, "connection refused")
	assert.ErrorIs(t, r.Failure.Err, model.err)
	assert.Zero(t, exec.calls.Load(), "executor must not run after a generation failure")
}

func TestAnswer_ValidationFailurePreservesRawText(t *testing.T) {
	model := &fakeModel{reply: "DROP TABLE users;"}
	exec := &fakeExecutor{}

	r := newService(model, exec).Answer(context.Background(), "delete everyone")

	require.False(t, r.OK)
	assert.Equal(t, domain.StageValidation, r.Failure.Stage)
	assert.Equal(t, "DROP TABLE users;", r.Failure.PartialData)
	assert.Contains(t, r.Failure.Message, "SQL validation failed")
	assert.ErrorIs(t, r.Failure.Err, domain.ErrNotSelect)
	assert.Zero(t, exec.calls.Load())
}

func TestAnswer_ValidationFailureKeepsUntrimmedRaw(t *testing.T) {
	raw := "```sql\nSELECT 1; DELETE FROM orders;\n```\n"
	r := newService(&fakeModel{reply: raw}, &fakeExecutor{}).Answer(context.Background(), "q")

	require.False(t, r.OK)
	assert.Equal(t, raw, r.Failure.PartialData)
	assert.ErrorIs(t, r.Failure.Err, domain.ErrForbiddenKeyword)
}

func TestAnswer_ExtraCheckRejects(t *testing.T) {
	exec := &fakeExecutor{}
	svc := newService(&fakeModel{reply: "SELECT * INTO copy FROM users"}, exec,
		WithChecks(rejectAll{err: domain.ErrSelectInto}))

	r := svc.Answer(context.Background(), "copy users")

	require.False(t, r.OK)
	assert.Equal(t, domain.StageValidation, r.Failure.Stage)
	assert.ErrorIs(t, r.Failure.Err, domain.ErrSelectInto)
	assert.Zero(t, exec.calls.Load())
}

func TestAnswer_ExecutionFailure(t *testing.T) {
	exec := &fakeExecutor{err: fmt.Errorf("executing query: %w", errors.New(`relation "customers" does not exist`))}

	r := newService(&fakeModel{reply: "SELECT * FROM customers;"}, exec).Answer(context.Background(), "customers?")

	require.False(t, r.OK)
	assert.Equal(t, domain.StageExecution, r.Failure.Stage)
	assert.Equal(t, "SELECT * FROM customers", r.Failure.PartialData)
	assert.Contains(t, r.Failure.Message, "DB execution failed")
	assert.Contains(t, r.Failure.Message, "does not exist")
	assert.Equal(t, int32(1), exec.calls.Load())
}

func TestAnswer_PanicsBecomeFailures(t *testing.T) {
	t.Run("model", func(t *testing.T) {
		r := newService(&fakeModel{panic: true}, &fakeExecutor{}).Answer(context.Background(), "q")
		require.False(t, r.OK)
		assert.Equal(t, domain.StageGeneration, r.Failure.Stage)
	})

	t.Run("executor", func(t *testing.T) {
		r := newService(&fakeModel{reply: "SELECT 1"}, &fakeExecutor{panic: true}).Answer(context.Background(), "q")
		require.False(t, r.OK)
		assert.Equal(t, domain.StageExecution, r.Failure.Stage)
		assert.Equal(t, "SELECT 1", r.Failure.PartialData)
		assert.Contains(t, r.Failure.Err.Error(), "driver bug")
	})
}

func TestAnswer_AppliesMasks(t *testing.T) {
	exec := &fakeExecutor{rows: []domain.Row{{"name": "Alice", "email": "alice@example.com"}}}
	svc := newService(&fakeModel{reply: "SELECT name, email FROM users"}, exec,
		WithMasks(domain.ColumnMasks{"email": domain.MaskEmail}))

	r := svc.Answer(context.Background(), "users and emails")

	require.True(t, r.OK)
	assert.Equal(t, "a***@example.com", r.Rows[0]["email"])
	assert.Equal(t, "Alice", r.Rows[0]["name"])
}

func TestAnswer_CustomPrompt(t *testing.T) {
	model := &fakeModel{reply: "SELECT 1"}
	prompt := domain.PromptConfig{Dialect: "PostgreSQL", Tables: []domain.Table{{Name: "widgets"}}}

	newService(model, &fakeExecutor{}, WithPrompt(prompt)).Answer(context.Background(), "widgets?")

	assert.Contains(t, model.lastMsgs[0].Content, "Table: widgets")
	assert.NotContains(t, model.lastMsgs[0].Content, "Table: users")
}

func TestAnswer_AuditsEveryOutcome(t *testing.T) {
	auditor := &recordingAuditor{}
	inst := &countingInst{}
	ctx := WithSource(context.Background(), "http")

	ok := newService(&fakeModel{reply: "SELECT 1"}, &fakeExecutor{rows: []domain.Row{{"?column?": 1}}},
		WithAuditor(auditor), WithInstrumentation(inst))
	bad := newService(&fakeModel{reply: "UPDATE users SET name = 'x'"}, &fakeExecutor{},
		WithAuditor(auditor), WithInstrumentation(inst))

	ok.Answer(ctx, "one")
	bad.Answer(ctx, "two")

	require.Len(t, auditor.entries, 2)

	first := auditor.entries[0]
	assert.Equal(t, "http", first.Source)
	assert.Equal(t, "one", first.Question)
	assert.Equal(t, "llama3.2", first.Model)
	assert.Equal(t, "SELECT 1", first.SQL)
	assert.Equal(t, "success", first.Outcome)
	assert.Equal(t, 1, first.RowsReturned)
	assert.NoError(t, first.Err)
	assert.NotEmpty(t, first.RequestID)

	second := auditor.entries[1]
	assert.Equal(t, "validation", second.Outcome)
	assert.Equal(t, "UPDATE users SET name = 'x'", second.SQL)
	assert.Error(t, second.Err)
	assert.NotEqual(t, first.RequestID, second.RequestID)

	assert.Equal(t, map[string]int{"success": 1, "validation": 1}, inst.outcomes)
}

func TestAnswer_RecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	svc := newService(&fakeModel{err: errors.New("timeout")}, &fakeExecutor{}, WithTracer(tp.Tracer("test")))
	svc.Answer(context.Background(), "q")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "TranslationService.Answer", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestAnswer_ConcurrentRequests(t *testing.T) {
	model := &fakeModel{reply: "SELECT id FROM users"}
	exec := &fakeExecutor{rows: []domain.Row{{"id": 1}}}
	svc := newService(model, exec)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := svc.Answer(context.Background(), fmt.Sprintf("question %d", i))
			assert.True(t, r.OK)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, model.calls)
	assert.Equal(t, int32(20), exec.calls.Load())
}

func TestCheck_RunsOfflineGate(t *testing.T) {
	exec := &fakeExecutor{}
	svc := newService(&fakeModel{}, exec)

	stmt, err := svc.Check("```sql\nSELECT id FROM users;\n```")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM users", stmt.SQL())

	_, err = svc.Check("DELETE FROM users")
	assert.ErrorIs(t, err, domain.ErrNotSelect)

	assert.Zero(t, exec.calls.Load(), "Check never executes")
}
