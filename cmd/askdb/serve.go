package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/guillermoBallester/askdb/internal/adapter/httpapi"
	"github.com/guillermoBallester/askdb/internal/adapter/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve /ask, health checks, metrics and MCP over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			logger.Info("starting askdb",
				slog.String("version", version),
				slog.String("transport", "http"),
				slog.String("model", cfg.Model),
				slog.String("llm_provider", cfg.LLMProvider),
				slog.Int("max_rows", cfg.MaxRows),
				slog.String("query_timeout", cfg.QueryTimeout.String()),
			)

			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(); err != nil {
					logger.Error("shutdown", slog.String("error", err.Error()))
				}
			}()

			mcpServer := mcp.NewServer(version, a.svc, logger, a.otel.Tracer(), a.inst)
			handler := httpapi.NewHandler(httpapi.Dependencies{
				Logger:    logger,
				Answerer:  a.svc,
				Readiness: a.readiness,
				Metrics:   a.prometheus.Handler(),
				Observer:  a.prometheus,
				MCP:       mcpserver.NewStreamableHTTPServer(mcpServer),

				BearerToken: cfg.HTTPBearerToken,
			})

			return serveHTTP(ctx, cfg.HTTPAddr, handler, logger)
		},
	}
}

// serveHTTP runs srv until ctx is cancelled, then drains in-flight requests.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving HTTP", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
