package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mentorvn/mentor/pkg/config"
)

// fakeTool is a scriptable tool for host tests.
type fakeTool struct {
	name    string
	sleep   time.Duration
	failMsg string
	execErr error
	calls   atomic.Int32
}

func (f *fakeTool) GetName() string        { return f.name }
func (f *fakeTool) GetDescription() string { return "fake " + f.name }

func (f *fakeTool) GetInfo() ToolInfo {
	return ToolInfo{Name: f.name, Description: f.GetDescription()}
}

func (f *fakeTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()
	f.calls.Add(1)

	if f.sleep > 0 {
		select {
		case <-time.After(f.sleep):
		case <-ctx.Done():
			return errorResult(f.name, ctx.Err().Error(), start), ctx.Err()
		}
	}
	if f.execErr != nil {
		return errorResult(f.name, f.execErr.Error(), start), f.execErr
	}
	if f.failMsg != "" {
		return errorResult(f.name, f.failMsg, start), nil
	}
	return successResult(f.name, "ok: "+stringArg(args, "query"), nil, start), nil
}

func newTestExecutor(t *testing.T, timeout time.Duration, tools ...Tool) *Executor {
	t.Helper()
	reg := NewRegistry()
	for _, tool := range tools {
		if err := reg.RegisterTool(tool); err != nil {
			t.Fatalf("RegisterTool(%s): %v", tool.GetName(), err)
		}
	}
	return NewExecutor(reg, config.ToolsConfig{CallTimeout: timeout})
}

func TestExecutor_ResultsInCallOrder(t *testing.T) {
	// The slowest tool comes first so completion order differs from
	// call order.
	exec := newTestExecutor(t, 5*time.Second,
		&fakeTool{name: "slow", sleep: 80 * time.Millisecond},
		&fakeTool{name: "fast"},
	)

	calls := []Call{
		{ID: "c1", Name: "slow"},
		{ID: "c2", Name: "fast"},
		{ID: "c3", Name: "fast"},
	}
	results := exec.Execute(context.Background(), calls)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if results[i].ToolCallID != want {
			t.Errorf("results[%d].ToolCallID = %q, want %q", i, results[i].ToolCallID, want)
		}
	}
	if results[0].Name != "slow" || results[1].Name != "fast" {
		t.Errorf("result names out of order: %+v", results)
	}
}

func TestExecutor_RunsCallsInParallel(t *testing.T) {
	exec := newTestExecutor(t, 5*time.Second,
		&fakeTool{name: "napper", sleep: 60 * time.Millisecond},
	)

	calls := make([]Call, 4)
	for i := range calls {
		calls[i] = Call{Name: "napper"}
	}

	start := time.Now()
	exec.Execute(context.Background(), calls)
	elapsed := time.Since(start)

	// Sequential execution would take ~240ms.
	if elapsed > 200*time.Millisecond {
		t.Errorf("batch took %s, calls do not appear to run in parallel", elapsed)
	}
}

func TestExecutor_PerCallTimeout(t *testing.T) {
	exec := newTestExecutor(t, 50*time.Millisecond,
		&fakeTool{name: "stuck", sleep: time.Second},
	)

	results := exec.Execute(context.Background(), []Call{{ID: "c1", Name: "stuck"}})

	if results[0].Status != StatusError {
		t.Fatalf("status = %q, want error", results[0].Status)
	}
	if !strings.Contains(results[0].Content, "stuck") || !strings.Contains(results[0].Content, "timed out") {
		t.Errorf("content = %q, want tool name and timeout", results[0].Content)
	}
}

func TestExecutor_FailureDoesNotAbortSiblings(t *testing.T) {
	healthy := &fakeTool{name: "healthy", sleep: 30 * time.Millisecond}
	exec := newTestExecutor(t, 5*time.Second,
		&fakeTool{name: "broken", execErr: errors.New("boom")},
		healthy,
	)

	results := exec.Execute(context.Background(), []Call{
		{ID: "c1", Name: "broken"},
		{ID: "c2", Name: "healthy", Args: map[string]interface{}{"query": "x"}},
	})

	if results[0].Status != StatusError {
		t.Errorf("broken call status = %q, want error", results[0].Status)
	}
	if results[1].Status != StatusSuccess {
		t.Errorf("healthy call status = %q, want success", results[1].Status)
	}
	if healthy.calls.Load() != 1 {
		t.Errorf("healthy tool ran %d times, want 1", healthy.calls.Load())
	}
}

func TestExecutor_UnknownTool(t *testing.T) {
	exec := newTestExecutor(t, time.Second)

	results := exec.Execute(context.Background(), []Call{{ID: "c1", Name: "no_such_tool"}})

	if results[0].Status != StatusError {
		t.Fatalf("status = %q, want error", results[0].Status)
	}
	if !strings.Contains(results[0].Content, "no_such_tool") {
		t.Errorf("content = %q, want unknown tool name", results[0].Content)
	}
}

func TestExecutor_AssignsCallID(t *testing.T) {
	exec := newTestExecutor(t, time.Second, &fakeTool{name: "echo"})

	results := exec.Execute(context.Background(), []Call{{Name: "echo"}})

	if results[0].ToolCallID == "" {
		t.Error("expected generated tool_call_id for call without one")
	}
}

func TestCallResult_MarshalContent(t *testing.T) {
	structured := CallResult{
		Status:  StatusSuccess,
		Content: "readable",
		Output:  map[string]interface{}{"total_found": 2},
	}
	if got := structured.MarshalContent(); !strings.Contains(got, `"total_found":2`) {
		t.Errorf("MarshalContent() = %q, want JSON output", got)
	}

	plain := CallResult{Status: StatusSuccess, Content: "readable"}
	if got := plain.MarshalContent(); got != "readable" {
		t.Errorf("MarshalContent() = %q, want content passthrough", got)
	}

	failed := CallResult{Status: StatusError, Content: "boom", Output: map[string]interface{}{"x": 1}}
	if got := failed.MarshalContent(); got != "boom" {
		t.Errorf("MarshalContent() = %q, want error content", got)
	}
}

func TestExecutor_EmptyBatch(t *testing.T) {
	exec := newTestExecutor(t, time.Second)
	if results := exec.Execute(context.Background(), nil); len(results) != 0 {
		t.Errorf("got %d results for empty batch", len(results))
	}
}

func TestExecutor_DefaultTimeout(t *testing.T) {
	exec := NewExecutor(NewRegistry(), config.ToolsConfig{})
	if exec.timeout != 120*time.Second {
		t.Errorf("default timeout = %s, want 120s", exec.timeout)
	}
}

func TestExecutor_ManyCallsStress(t *testing.T) {
	tool := &fakeTool{name: "echo"}
	exec := newTestExecutor(t, time.Second, tool)

	calls := make([]Call, 50)
	for i := range calls {
		calls[i] = Call{ID: fmt.Sprintf("c%d", i), Name: "echo"}
	}
	results := exec.Execute(context.Background(), calls)

	for i, r := range results {
		if r.ToolCallID != fmt.Sprintf("c%d", i) {
			t.Fatalf("results[%d] out of order: %+v", i, r)
		}
		if r.Status != StatusSuccess {
			t.Fatalf("results[%d] failed: %+v", i, r)
		}
	}
	if tool.calls.Load() != 50 {
		t.Errorf("tool ran %d times, want 50", tool.calls.Load())
	}
}
