package server

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorvn/mentor/pkg/tools"
)

func TestMCPToolDefinition(t *testing.T) {
	info := tools.ToolInfo{
		Name:        "retrieve_documents",
		Description: "Tra cứu văn bản",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"query"},
		},
	}

	tool := mcpToolDefinition(info)
	assert.Equal(t, "retrieve_documents", tool.Name)
	assert.Equal(t, "Tra cứu văn bản", tool.Description)
	assert.Equal(t, "object", tool.InputSchema.Type)
	assert.Contains(t, tool.InputSchema.Properties, "query")
	assert.Equal(t, []string{"query"}, tool.InputSchema.Required)
}

func TestMCPToolDefinition_NoSchema(t *testing.T) {
	tool := mcpToolDefinition(tools.ToolInfo{Name: "bare", Description: "no arguments"})

	assert.Equal(t, "object", tool.InputSchema.Type)
	assert.Empty(t, tool.InputSchema.Required)
}

func TestMCPToolHandler(t *testing.T) {
	executor := newTestExecutor(t, &echoTool{name: "echo"})
	handler := mcpToolHandler(executor, "echo")

	req := mcp.CallToolRequest{}
	req.Params.Name = "echo"
	req.Params.Arguments = map[string]interface{}{"text": "hi"}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError, "unexpected error result: %+v", result.Content)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content[0] is %T, want mcp.TextContent", result.Content[0])
	// Structured tool output is serialized to JSON for the text transport.
	assert.Contains(t, text.Text, `"text":"hi"`)
}

func TestMCPToolHandler_ToolFailure(t *testing.T) {
	executor := newTestExecutor(t, &echoTool{name: "echo", failMsg: "boom"})
	handler := mcpToolHandler(executor, "echo")

	req := mcp.CallToolRequest{}
	req.Params.Name = "echo"

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.IsError, "expected an error result")

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content[0] is %T, want mcp.TextContent", result.Content[0])
	assert.Contains(t, text.Text, "boom")
}

func TestNewMCPServer(t *testing.T) {
	executor := newTestExecutor(t, &echoTool{name: "echo"}, &echoTool{name: "other"})

	require.NotNil(t, NewMCPServer(executor, "test"))
}
