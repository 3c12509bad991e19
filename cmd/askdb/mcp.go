package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/guillermoBallester/askdb/internal/adapter/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the query_db tool over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			logger.Info("starting askdb",
				slog.String("version", version),
				slog.String("transport", "stdio"),
				slog.String("model", cfg.Model),
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

			s := mcp.NewServer(version, a.svc, logger, a.otel.Tracer(), a.inst)
			logger.Info("serving MCP over stdio")
			if err := mcpserver.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout); err != nil {
				return fmt.Errorf("stdio server: %w", err)
			}

			logger.Info("shutdown complete")
			return nil
		},
	}
}
