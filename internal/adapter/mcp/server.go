package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/askdb/internal/core/port"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer exposing the question-answering tools, with
// logging hooks and optional OTel spans and metrics.
func NewServer(version string, answerer Answerer, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, answerer)

	return s
}
