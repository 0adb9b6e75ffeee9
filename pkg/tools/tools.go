// Package tools hosts the callable tools exposed to agent runtimes.
//
// The host registers retrieval and student-portal tools, serves their
// definitions (including JSON schemas for arguments) and executes calls,
// fanning parallel calls out with a per-call timeout. A failing call is
// reported back as a typed tool-error result and never aborts siblings.
package tools

import (
	"context"
	"time"
)

// ToolInfo describes a tool to agent runtimes.
//
// Parameters is the flat listing; InputSchema is the same contract as a
// JSON schema for runtimes that validate arguments.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  []ToolParameter        `json:"parameters,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema,omitempty"`
}

// ToolParameter describes one tool argument.
type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
}

// ToolResult is the outcome of one tool execution.
//
// Content carries the human-readable rendering; Output carries the typed
// structure when the tool produces one (retrieval results, transcripts).
type ToolResult struct {
	Success       bool          `json:"success"`
	Content       string        `json:"content,omitempty"`
	Output        interface{}   `json:"output,omitempty"`
	Error         string        `json:"error,omitempty"`
	ToolName      string        `json:"tool_name"`
	ExecutionTime time.Duration `json:"execution_time,omitempty"`
}

// Tool is one callable tool.
//
// Implementations must be safe for concurrent use: the executor may run
// the same tool for several calls of one batch simultaneously.
type Tool interface {
	GetInfo() ToolInfo

	Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error)

	GetName() string

	GetDescription() string
}

// successResult builds a ToolResult for a completed execution.
func successResult(toolName, content string, output interface{}, start time.Time) ToolResult {
	return ToolResult{
		Success:       true,
		Content:       content,
		Output:        output,
		ToolName:      toolName,
		ExecutionTime: time.Since(start),
	}
}

// errorResult builds a ToolResult for a failed execution.
func errorResult(toolName, errorMsg string, start time.Time) ToolResult {
	return ToolResult{
		Success:       false,
		Error:         errorMsg,
		ToolName:      toolName,
		ExecutionTime: time.Since(start),
	}
}

// stringArg extracts a string argument, tolerating absence.
func stringArg(args map[string]interface{}, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}
