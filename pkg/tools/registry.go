package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mentorvn/mentor/pkg/observability"
	"github.com/mentorvn/mentor/pkg/registry"
)

// RegistryError reports a tool registration or lookup failure.
type RegistryError struct {
	Action  string
	Message string
	Err     error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tools %s: %s: %v", e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("tools %s: %s", e.Action, e.Message)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// NewRegistryError creates a RegistryError.
func NewRegistryError(action, message string, err error) *RegistryError {
	return &RegistryError{Action: action, Message: message, Err: err}
}

// Registry holds the registered tools by name.
type Registry struct {
	*registry.BaseRegistry[Tool]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Tool]()}
}

// RegisterTool adds a tool under its own name.
func (r *Registry) RegisterTool(tool Tool) error {
	name := tool.GetName()
	if name == "" {
		return NewRegistryError("register", "tool name cannot be empty", nil)
	}
	if err := r.Register(name, tool); err != nil {
		return NewRegistryError("register", fmt.Sprintf("failed to register tool %s", name), err)
	}
	return nil
}

// GetTool looks a tool up by name.
func (r *Registry) GetTool(name string) (Tool, error) {
	tool, exists := r.Get(name)
	if !exists {
		return nil, NewRegistryError("lookup", fmt.Sprintf("tool %s not found", name), nil)
	}
	return tool, nil
}

// ListTools returns the definitions of all registered tools, sorted by name.
func (r *Registry) ListTools() []ToolInfo {
	tools := make([]ToolInfo, 0, r.Count())
	for _, tool := range r.List() {
		tools = append(tools, tool.GetInfo())
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})
	return tools
}

// ExecuteTool runs one tool by name, recording the span and metrics.
//
// An unknown tool or an execution error is reflected both in the returned
// error and in the ToolResult so callers can forward either form.
func (r *Registry) ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (ToolResult, error) {
	startTime := time.Now()

	tracer := observability.GetTracer("mentor.tools")
	ctx, span := tracer.Start(ctx, observability.SpanToolExecution,
		trace.WithAttributes(attribute.String("tool.name", toolName)),
	)
	defer span.End()

	metrics := observability.GlobalMetrics()

	tool, err := r.GetTool(toolName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tool not found")
		metrics.RecordToolCall(ctx, toolName, time.Since(startTime), err)
		return errorResult(toolName, err.Error(), startTime), err
	}

	result, execErr := tool.Execute(ctx, args)
	duration := time.Since(startTime)

	var recordErr error
	switch {
	case execErr != nil:
		recordErr = execErr
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
	case !result.Success:
		recordErr = fmt.Errorf("%s", result.Error)
		span.RecordError(recordErr)
		span.SetStatus(codes.Error, result.Error)
	default:
		span.SetStatus(codes.Ok, "success")
	}
	metrics.RecordToolCall(ctx, toolName, duration, recordErr)

	span.SetAttributes(
		attribute.Bool("tool.success", result.Success),
		attribute.Int64("tool.duration_ms", duration.Milliseconds()),
	)

	return result, execErr
}
