package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/askdb/internal/core/domain"
	"github.com/guillermoBallester/askdb/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type sourceKey struct{}

// WithSource returns a context carrying the transport name ("http", "mcp",
// "cli") for audit logging.
func WithSource(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, sourceKey{}, name)
}

func sourceFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(sourceKey{}).(string); ok {
		return v
	}
	return ""
}

// Option configures optional TranslationService collaborators.
type Option func(*TranslationService)

// WithPrompt replaces the compiled-in schema prompt.
func WithPrompt(p domain.PromptConfig) Option {
	return func(s *TranslationService) { s.prompt = p }
}

// WithChecks adds rejection passes that run after the validator.
func WithChecks(checks ...port.StatementCheck) Option {
	return func(s *TranslationService) { s.checks = append(s.checks, checks...) }
}

func WithAuditor(a port.QueryAuditor) Option {
	return func(s *TranslationService) {
		if a != nil {
			s.auditor = a
		}
	}
}

// WithMasks sets column masks applied to successful results.
func WithMasks(m domain.ColumnMasks) Option {
	return func(s *TranslationService) { s.masks = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *TranslationService) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithInstrumentation(i port.Instrumentation) Option {
	return func(s *TranslationService) {
		if i != nil {
			s.inst = i
		}
	}
}

// TranslationService turns a question into rows: prompt, model call,
// sanitize, validate, execute. Each request makes exactly one model call and
// at most one database round trip; nothing is retried.
type TranslationService struct {
	model     port.LanguageModel
	modelName string
	prompt    domain.PromptConfig
	validator port.StatementValidator
	checks    []port.StatementCheck
	executor  port.QueryExecutor
	auditor   port.QueryAuditor
	logger    *slog.Logger
	masks     domain.ColumnMasks
	tracer    trace.Tracer
	inst      port.Instrumentation
}

func NewTranslationService(model port.LanguageModel, modelName string, validator port.StatementValidator, executor port.QueryExecutor, logger *slog.Logger, opts ...Option) *TranslationService {
	s := &TranslationService{
		model:     model,
		modelName: modelName,
		prompt:    domain.DefaultPrompt(),
		validator: validator,
		executor:  executor,
		auditor:   port.NoopAuditor{},
		logger:    logger,
		tracer:    noop.NewTracerProvider().Tracer("noop"),
		inst:      port.NoopInstrumentation{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer never returns an error: every failure, including a panic in a
// collaborator, comes back as a Failure tagged with the stage it happened in.
func (s *TranslationService) Answer(ctx context.Context, question string) (result domain.Result) {
	requestID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "TranslationService.Answer",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("gen_ai.request.model", s.modelName),
		),
	)
	defer span.End()

	logger := s.logger.With(slog.String("request.id", requestID))
	start := time.Now()
	stage := domain.StageGeneration
	var raw, sql string

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "panic while answering",
				slog.String("stage", string(stage)),
				slog.Any("panic", p),
			)
			partial := raw
			if stage == domain.StageExecution {
				partial = sql
			}
			result = domain.Failed(stage, fmt.Sprintf("internal error during %s", stage), partial, fmt.Errorf("panic: %v", p))
		}
		s.finish(ctx, span, logger, requestID, question, result, time.Since(start))
	}()

	genStart := time.Now()
	raw, err := s.model.Chat(ctx, s.modelName, []port.Message{
		{Role: "user", Content: s.prompt.Build(question)},
	})
	s.inst.RecordGenerationDuration(ctx, float64(time.Since(genStart).Milliseconds()))
	if err != nil {
		logger.WarnContext(ctx, "model call failed",
			slog.String("gen_ai.request.model", s.modelName),
			slog.String("error.type", "generation_error"),
			slog.String("error.message", err.Error()),
		)
		return domain.Failed(domain.StageGeneration, fmt.Sprintf("model call failed: %v", err), "", err)
	}

	stage = domain.StageValidation
	stmt, err := s.validate(domain.Sanitize(raw))
	if err != nil {
		logger.WarnContext(ctx, "generated SQL rejected",
			slog.String("db.statement", raw),
			slog.String("error.type", "validation_error"),
			slog.String("error.message", err.Error()),
		)
		return domain.Failed(domain.StageValidation, fmt.Sprintf("SQL validation failed: %v", err), raw, err)
	}

	stage = domain.StageExecution
	sql = stmt.SQL()
	queryStart := time.Now()
	rows, err := s.executor.Execute(ctx, stmt)
	s.inst.RecordQueryDuration(ctx, float64(time.Since(queryStart).Milliseconds()))
	if err != nil {
		logger.WarnContext(ctx, "query execution failed",
			slog.String("db.statement", sql),
			slog.String("error.type", "execution_error"),
			slog.String("error.message", err.Error()),
		)
		return domain.Failed(domain.StageExecution, fmt.Sprintf("DB execution failed: %v", err), sql, err)
	}

	domain.MaskRows(rows, s.masks)
	return domain.Succeeded(stmt, rows)
}

// Check runs the offline half of the pipeline on model-style text: sanitize,
// validate and any extra checks. Nothing is executed.
func (s *TranslationService) Check(text string) (domain.ValidatedStatement, error) {
	return s.validate(domain.Sanitize(text))
}

func (s *TranslationService) validate(candidate string) (domain.ValidatedStatement, error) {
	stmt, err := s.validator.Validate(candidate)
	if err != nil {
		return domain.ValidatedStatement{}, err
	}
	for _, c := range s.checks {
		if err := c.Check(stmt); err != nil {
			return domain.ValidatedStatement{}, err
		}
	}
	return stmt, nil
}

func (s *TranslationService) finish(ctx context.Context, span trace.Span, logger *slog.Logger, requestID, question string, r domain.Result, elapsed time.Duration) {
	outcome := r.Outcome()
	s.inst.IncrementAnswers(ctx, outcome)

	entry := port.AuditEntry{
		RequestID:  requestID,
		Source:     sourceFromCtx(ctx),
		Question:   question,
		Model:      s.modelName,
		Outcome:    outcome,
		DurationMS: elapsed.Milliseconds(),
	}

	if r.OK {
		entry.SQL = r.SQL
		entry.RowsReturned = len(r.Rows)
		span.SetAttributes(
			attribute.String("db.statement", r.SQL),
			attribute.Int("db.response.rows", len(r.Rows)),
		)
	} else {
		entry.SQL = r.Failure.PartialData
		entry.Err = r.Failure.Err
		if entry.Err == nil {
			entry.Err = errors.New(r.Failure.Message)
		}
		span.RecordError(entry.Err)
		span.SetStatus(codes.Error, r.Failure.Message)
		span.SetAttributes(attribute.String("askdb.failure.stage", string(r.Failure.Stage)))
	}

	s.auditor.Record(ctx, entry)

	logger.InfoContext(ctx, "question answered",
		slog.String("outcome", outcome),
		slog.Int("rows", entry.RowsReturned),
		slog.Duration("duration", elapsed),
	)
}
