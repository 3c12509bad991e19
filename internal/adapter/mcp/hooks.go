package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/askdb/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// inflight tracks tool calls between the before and after hooks, keyed by
// JSON-RPC request id.
type inflight struct {
	mu    sync.Mutex
	calls map[any]callState
}

type callState struct {
	tool  string
	start time.Time
	span  trace.Span
}

func (f *inflight) put(id any, st callState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id] = st
}

func (f *inflight) take(id any) (callState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.calls[id]
	delete(f.calls, id)
	return st, ok
}

// ToolCallHooks logs every tool call and, when tracer or inst are non-nil,
// records a span and a duration sample per call.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	hooks := &server.Hooks{}
	calls := &inflight{calls: make(map[any]callState)}

	end := func(ctx context.Context, id any, fallbackTool string, callErr error) {
		st, ok := calls.take(id)
		if !ok {
			st = callState{tool: fallbackTool}
		}
		if st.tool == "" {
			return
		}

		var duration time.Duration
		if !st.start.IsZero() {
			duration = time.Since(st.start)
		}

		attrs := []slog.Attr{
			slog.String("rpc.method", string(mcp.MethodToolsCall)),
			slog.String("mcp.tool", st.tool),
			slog.Duration("duration", duration),
			slog.Bool("error", callErr != nil),
		}
		level := slog.LevelInfo
		if callErr != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("error.message", callErr.Error()))
		}
		logger.LogAttrs(ctx, level, "tool call", attrs...)

		if inst != nil {
			inst.RecordToolDuration(ctx, float64(duration.Milliseconds()))
		}

		if st.span != nil {
			if callErr != nil {
				st.span.RecordError(callErr)
				st.span.SetStatus(codes.Error, callErr.Error())
			}
			st.span.End()
		}
	}

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		st := callState{tool: req.Params.Name, start: time.Now()}
		if tracer != nil {
			_, st.span = tracer.Start(ctx, "mcp.tool.call",
				trace.WithAttributes(attribute.String("mcp.tool", req.Params.Name)),
			)
		}
		calls.put(id, st)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
		var callErr error
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			callErr = errors.New("tool returned error")
		}
		end(ctx, id, req.Params.Name, callErr)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		tool := ""
		if req, ok := message.(*mcp.CallToolRequest); ok {
			tool = req.Params.Name
		}
		if tool == "" && method != mcp.MethodToolsCall {
			return
		}
		end(ctx, id, tool, err)
	})

	return hooks
}
