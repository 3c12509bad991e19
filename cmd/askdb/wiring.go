package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/guillermoBallester/askdb/internal/adapter/llm"
	"github.com/guillermoBallester/askdb/internal/adapter/policy"
	"github.com/guillermoBallester/askdb/internal/adapter/postgres"
	"github.com/guillermoBallester/askdb/internal/adapter/sqldb"
	"github.com/guillermoBallester/askdb/internal/audit"
	"github.com/guillermoBallester/askdb/internal/config"
	"github.com/guillermoBallester/askdb/internal/core/domain"
	"github.com/guillermoBallester/askdb/internal/core/port"
	"github.com/guillermoBallester/askdb/internal/core/service"
	"github.com/guillermoBallester/askdb/internal/telemetry"
)

// app is everything a command needs once the config is loaded. close
// releases resources in reverse order of acquisition.
type app struct {
	svc        *service.TranslationService
	readiness  func(ctx context.Context) error
	prometheus *telemetry.Prometheus
	otel       *telemetry.Provider
	inst       telemetry.Fanout
	closers    []func() error
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newLogger(level slog.Level) *slog.Logger {
	// stdout is reserved for the MCP stdio transport and command output.
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	if cfg.OTelEnabled {
		a.otel, err = telemetry.Init(ctx, "askdb", version)
		if err != nil {
			return nil, fmt.Errorf("initializing telemetry: %w", err)
		}
		a.closers = append(a.closers, func() error { return a.otel.Shutdown(context.Background()) })
		logger.Info("opentelemetry enabled")
	}
	a.prometheus = telemetry.NewPrometheus()
	a.inst = telemetry.Fanout{a.prometheus}
	if cfg.OTelEnabled {
		a.inst = append(a.inst, telemetry.NewInstruments())
	}

	opts := []service.Option{
		service.WithTracer(a.otel.Tracer()),
		service.WithInstrumentation(a.inst),
	}
	prompt := domain.DefaultPrompt()

	if cfg.PolicyFile != "" {
		pol, err := policy.LoadFromFile(cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("loading policy: %w", err)
		}
		prompt = policy.ApplyToPrompt(prompt, pol)
		opts = append(opts, service.WithMasks(pol.Masks()))
		logger.Info("policy loaded", slog.String("file", cfg.PolicyFile))
	}
	opts = append(opts, service.WithPrompt(prompt))

	// Readiness checks the tables the model is actually told about.
	executor, err := a.buildExecutor(ctx, cfg, logger, prompt.TableNames())
	if err != nil {
		return nil, err
	}
	if cfg.ExplainOnly {
		executor = postgres.NewExplainOnlyExecutor(executor)
		logger.Info("explain-only mode: statements are planned, never run")
	}

	model, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.StrictParse {
		opts = append(opts, service.WithChecks(domain.NewParserCheck()))
	}

	if cfg.AuditLog != "" {
		auditor, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, auditor.Close)
		opts = append(opts, service.WithAuditor(auditor))
		logger.Info("audit log enabled", slog.String("file", cfg.AuditLog))
	}

	a.svc = service.NewTranslationService(model, cfg.Model, domain.NewStatementValidator(), executor, logger, opts...)
	return a, nil
}

func (a *app) buildExecutor(ctx context.Context, cfg *config.Config, logger *slog.Logger, tables []string) (port.QueryExecutor, error) {
	switch cfg.DBDriver {
	case config.DriverStdlib:
		db, err := sqldb.Open(ctx, sqldb.DBConfig{
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    int(cfg.PoolMaxConns),
			MaxIdleConns:    int(cfg.PoolMinConns),
			ConnMaxLifetime: cfg.PoolMaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		catalog := sqldb.NewCatalogChecker(db)
		a.readiness = func(ctx context.Context) error { return catalog.Ready(ctx, tables) }
		logger.Info("database connected",
			slog.String("db.system", "postgresql"),
			slog.String("driver", cfg.DBDriver),
			slog.String("database_url", redactDSN(cfg.DatabaseURL)),
		)
		return sqldb.NewExecutor(db, cfg.MaxRows, cfg.QueryTimeout), nil

	default:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxConns:        cfg.PoolMaxConns,
			MinConns:        cfg.PoolMinConns,
			MaxConnLifetime: cfg.PoolMaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		catalog := postgres.NewCatalogChecker(pool)
		a.readiness = func(ctx context.Context) error { return catalog.Ready(ctx, tables) }

		logger.Info("database pool connected",
			slog.String("db.system", "postgresql"),
			slog.String("driver", cfg.DBDriver),
			slog.String("database_url", redactDSN(cfg.DatabaseURL)),
			slog.Int("pool_max_conns", int(cfg.PoolMaxConns)),
		)
		return postgres.NewExecutor(pool, cfg.MaxRows, cfg.QueryTimeout), nil
	}
}

func buildModel(cfg *config.Config) (port.LanguageModel, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("creating model client: %w", err)
		}
		return client, nil
	default:
		return llm.NewOllamaClient(llm.OllamaConfig{Host: cfg.LLMBaseURL, Timeout: cfg.LLMTimeout}), nil
	}
}

// redactDSN replaces the password in a connection URL so it can be logged.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
