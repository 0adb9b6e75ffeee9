package server

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mentorvn/mentor/pkg/tools"
)

// NewMCPServer builds an MCP server exposing every registered tool.
//
// Calls go through the executor so MCP invocations get the same per-call
// timeout, tracing and error shaping as HTTP ones.
func NewMCPServer(executor *tools.Executor, version string) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer("mentor", version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	for _, info := range executor.Registry().ListTools() {
		srv.AddTool(mcpToolDefinition(info), mcpToolHandler(executor, info.Name))
	}

	return srv
}

// ServeMCPStdio blocks serving the MCP protocol on stdin/stdout.
func ServeMCPStdio(executor *tools.Executor, version string) error {
	return mcpserver.ServeStdio(NewMCPServer(executor, version))
}

// NewMCPHTTPHandler exposes the MCP server as a streamable HTTP handler,
// suitable for mounting under the main router.
func NewMCPHTTPHandler(executor *tools.Executor, version string) http.Handler {
	return mcpserver.NewStreamableHTTPServer(NewMCPServer(executor, version))
}

// mcpToolDefinition maps a tool definition onto the MCP wire schema.
func mcpToolDefinition(info tools.ToolInfo) mcp.Tool {
	schema := mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	}
	if props, ok := info.InputSchema["properties"].(map[string]interface{}); ok {
		schema.Properties = props
	}
	if required, ok := info.InputSchema["required"].([]interface{}); ok {
		for _, entry := range required {
			if name, ok := entry.(string); ok {
				schema.Required = append(schema.Required, name)
			}
		}
	}

	return mcp.Tool{
		Name:        info.Name,
		Description: info.Description,
		InputSchema: schema,
	}
}

func mcpToolHandler(executor *tools.Executor, name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := executor.ExecuteOne(ctx, tools.Call{
			Name: name,
			Args: request.GetArguments(),
		})
		if result.Status == tools.StatusError {
			return mcpErrorResult(result.Content), nil
		}
		return mcpTextResult(result.MarshalContent()), nil
	}
}

func mcpTextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: message},
		},
		IsError: true,
	}
}
