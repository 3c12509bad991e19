package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/guillermoBallester/askdb/internal/core/domain"
	"github.com/guillermoBallester/askdb/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "askdb"

// Tool descriptions
const (
	descQueryDB = "Answer a question about the shop database (users, products, inventories, orders, order_items). " +
		"The question is translated to a single read-only SELECT, validated, and executed. " +
		"Returns JSON: {\"ok\":true,\"sql\":...,\"rows\":[...]} on success, or " +
		"{\"ok\":false,\"error\":...,\"stage\":...} naming the stage that failed."

	descQueryDBParam = "Natural-language question, e.g. \"top 5 most expensive products\""

	descValidateSQL = "Check SQL against the read-only gate without running it. " +
		"Markdown fences are stripped first. Returns the cleaned statement or the reason it was rejected."

	descValidateSQLParam = "SQL text to check"
)

// Answerer is the part of service.TranslationService the tools need.
type Answerer interface {
	Answer(ctx context.Context, question string) domain.Result
	Check(text string) (domain.ValidatedStatement, error)
}

func RegisterTools(s *server.MCPServer, answerer Answerer) {
	s.AddTool(
		mcp.NewTool("query_db",
			mcp.WithDescription(descQueryDB),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description(descQueryDBParam),
			),
		),
		queryDBHandler(answerer),
	)

	s.AddTool(
		mcp.NewTool("validate_sql",
			mcp.WithDescription(descValidateSQL),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descValidateSQLParam),
			),
		),
		validateSQLHandler(answerer),
	)
}

func queryDBHandler(answerer Answerer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, ok := request.GetArguments()["question"].(string)
		if !ok || question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		result := answerer.Answer(service.WithSource(ctx, "mcp"), question)

		data, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		if !result.OK {
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func validateSQLHandler(answerer Answerer) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		stmt, err := answerer.Check(sql)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("rejected: %v", err)), nil
		}
		return mcp.NewToolResultText(stmt.SQL()), nil
	}
}
