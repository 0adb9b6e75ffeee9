package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/portal"
	"github.com/mentorvn/mentor/pkg/retrieval"
)

func newToolPortal(t *testing.T, handler http.HandlerFunc) *portal.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return portal.NewClient(config.PortalConfig{
		BaseURL: srv.URL,
		Cookie:  "session=configured",
		Timeout: 5 * time.Second,
	})
}

func TestGetGradesTool(t *testing.T) {
	var gotCookie string
	client := newToolPortal(t, func(w http.ResponseWriter, req *http.Request) {
		gotCookie = req.Header.Get("Cookie")
		_ = json.NewEncoder(w).Encode(portal.Grades{
			StudentID:     "21520001",
			CumulativeGPA: 8.1,
		})
	})
	tool := NewGetGradesTool(client)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"cookie": "session=mine",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if gotCookie != "session=mine" {
		t.Errorf("cookie = %q, want explicit argument", gotCookie)
	}
	if !strings.Contains(result.Content, "21520001") {
		t.Errorf("content = %q", result.Content)
	}
	if _, ok := result.Output.(*portal.Grades); !ok {
		t.Errorf("Output type = %T, want *portal.Grades", result.Output)
	}
}

func TestGetScheduleTool_ConfiguredCookie(t *testing.T) {
	var gotCookie string
	client := newToolPortal(t, func(w http.ResponseWriter, req *http.Request) {
		gotCookie = req.Header.Get("Cookie")
		_ = json.NewEncoder(w).Encode(portal.Schedule{Semester: "HK1 2025-2026"})
	})
	tool := NewGetScheduleTool(client)

	result, err := tool.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if gotCookie != "session=configured" {
		t.Errorf("cookie = %q, want configured fallback", gotCookie)
	}
}

func TestGetGradesTool_PortalFailure(t *testing.T) {
	client := newToolPortal(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	})
	tool := NewGetGradesTool(client)

	result, err := tool.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("portal failure should become a tool-level failure, got %v", err)
	}
	if result.Success {
		t.Fatal("expected failed result")
	}
	if !strings.Contains(result.Error, "auth") {
		t.Errorf("error = %q, want auth classification", result.Error)
	}
}

func TestHost_PortalToolsOptional(t *testing.T) {
	engine := newToolEngine(t, nil)
	router := newToolRouter(engine)

	withoutPortal, err := NewHost(HostOptions{Engine: engine, Router: router})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	for _, info := range withoutPortal.Registry().ListTools() {
		if info.Name == "get_grades" || info.Name == "get_schedule" {
			t.Errorf("portal tool %s registered without a portal client", info.Name)
		}
	}

	client := newToolPortal(t, func(w http.ResponseWriter, req *http.Request) {})
	withPortal, err := NewHost(HostOptions{Engine: engine, Router: router, Portal: client})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	names := withPortal.Registry().Names()
	joined := strings.Join(names, ",")
	for _, want := range []string{"retrieve_documents", "retrieve_regulation", "retrieve_curriculum", "get_grades", "get_schedule"} {
		if !strings.Contains(joined, want) {
			t.Errorf("registry missing %s: %v", want, names)
		}
	}
}

func TestHost_DisabledTools(t *testing.T) {
	engine := newToolEngine(t, nil)
	router := newToolRouter(engine)

	host, err := NewHost(HostOptions{
		Config: config.ToolsConfig{Disabled: []string{"retrieve_documents"}},
		Engine: engine,
		Router: router,
	})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	if _, err := host.Registry().GetTool("retrieve_documents"); err == nil {
		t.Error("disabled tool should not be registered")
	}
	if _, err := host.Registry().GetTool("retrieve_regulation"); err != nil {
		t.Errorf("sibling tool missing: %v", err)
	}
}

func newToolRouter(engine *retrieval.Engine) *retrieval.Router {
	return retrieval.NewRouter(&config.RouterConfig{Strategy: config.RoutingQueryAll}, engine.Collections(), nil)
}
