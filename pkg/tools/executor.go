package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mentorvn/mentor/pkg/config"
)

const (
	// StatusSuccess marks a call that produced output.
	StatusSuccess = "success"

	// StatusError marks a call that failed; Content carries the message.
	StatusError = "error"
)

// Call is one tool invocation requested by an agent turn.
type Call struct {
	// ID correlates the result with the request. Assigned when empty.
	ID string `json:"id,omitempty"`

	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// CallResult is the outcome of one Call, shaped for the agent protocol.
type CallResult struct {
	Name       string      `json:"name"`
	ToolCallID string      `json:"tool_call_id"`
	Content    string      `json:"content"`
	Output     interface{} `json:"output,omitempty"`
	Status     string      `json:"status"`
}

// Executor fans tool calls out in parallel with a per-call timeout.
//
// Failures are converted into error-status results; they never abort
// sibling calls, and the executor itself never returns an error for a
// failing tool.
type Executor struct {
	registry *Registry
	timeout  time.Duration
}

// NewExecutor creates an executor over a registry.
func NewExecutor(reg *Registry, cfg config.ToolsConfig) *Executor {
	cfg.SetDefaults()
	return &Executor{registry: reg, timeout: cfg.CallTimeout}
}

// Registry returns the underlying tool registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs all calls in parallel and returns results in call order.
func (e *Executor) Execute(ctx context.Context, calls []Call) []CallResult {
	results := make([]CallResult, len(calls))
	if len(calls) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = e.executeOne(gctx, call)
			return nil
		})
	}
	// Workers only report through the results slice.
	_ = g.Wait()

	return results
}

// ExecuteOne runs a single call with the per-call timeout applied.
func (e *Executor) ExecuteOne(ctx context.Context, call Call) CallResult {
	return e.executeOne(ctx, call)
}

func (e *Executor) executeOne(ctx context.Context, call Call) CallResult {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	result, err := e.registry.ExecuteTool(callCtx, call.Name, call.Args)
	if err != nil || !result.Success {
		msg := result.Error
		if msg == "" && err != nil {
			msg = err.Error()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("tool %s timed out after %s", call.Name, e.timeout)
		}
		slog.Warn("Tool call failed", "tool", call.Name, "call_id", call.ID,
			"duration", time.Since(start).Round(time.Millisecond), "error", msg)
		return CallResult{
			Name:       call.Name,
			ToolCallID: call.ID,
			Content:    msg,
			Status:     StatusError,
		}
	}

	slog.Debug("Tool call completed", "tool", call.Name, "call_id", call.ID,
		"duration", time.Since(start).Round(time.Millisecond))

	return CallResult{
		Name:       call.Name,
		ToolCallID: call.ID,
		Content:    result.Content,
		Output:     result.Output,
		Status:     StatusSuccess,
	}
}

// MarshalContent renders a call result's payload for transports that only
// carry text: structured output is serialized to JSON, otherwise Content
// is returned as-is.
func (r CallResult) MarshalContent() string {
	if r.Status == StatusError || r.Output == nil {
		return r.Content
	}
	data, err := json.Marshal(r.Output)
	if err != nil {
		return r.Content
	}
	return string(data)
}
