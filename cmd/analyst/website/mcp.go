package website

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// mcpHandler exposes the analyst as MCP tools over SSE.
func mcpHandler(h *handlers, version string) http.Handler {
	server := mcp.NewServer(&mcp.Implementation{Name: "analyst", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_dataset",
		Description: "Answer a question about the uploaded dataset by generating and running SQL against it.",
	}, h.askTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "describe_dataset",
		Description: "List the loaded tables with their columns and types.",
	}, h.describeTool)

	f := func(*http.Request) *mcp.Server {
		return server
	}

	return mcp.NewSSEHandler(f, &mcp.SSEOptions{})
}

// AskToolParams represents the parameters for the ask_dataset tool.
type AskToolParams struct {
	Question string `json:"question" jsonschema:"The question to answer from the uploaded dataset."`
}

func (h *handlers) askTool(ctx context.Context, req *mcp.CallToolRequest, params AskToolParams) (*mcp.CallToolResult, any, error) {
	ctx = logger.SetTraceID(ctx, uuid.NewString())

	state, err := h.run(ctx, params.Question)
	if err != nil {
		h.log(ctx, "website: mcp: ask_dataset", "ERROR", err)
		return nil, nil, err
	}

	return toolResult(toAskResponse(h.pipeline.Mode(), state))
}

// DescribeToolParams represents the parameters for the describe_dataset tool.
type DescribeToolParams struct{}

func (h *handlers) describeTool(ctx context.Context, req *mcp.CallToolRequest, params DescribeToolParams) (*mcp.CallToolResult, any, error) {
	tables, err := h.describe(ctx)
	if err != nil {
		return nil, nil, err
	}

	return toolResult(tables)
}

func toolResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{
			Text: string(data),
		}},
	}, nil, nil
}
