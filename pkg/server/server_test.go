// Copyright 2025 Mentor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/tools"
)

// echoTool is a minimal tool double for exercising the HTTP surface.
type echoTool struct {
	name    string
	failMsg string
}

func (e *echoTool) GetName() string        { return e.name }
func (e *echoTool) GetDescription() string { return "echoes its text argument" }

func (e *echoTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        e.name,
		Description: e.GetDescription(),
		Parameters: []tools.ToolParameter{
			{Name: "text", Type: "string", Description: "text to echo", Required: true},
		},
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"text"},
		},
	}
}

func (e *echoTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	if e.failMsg != "" {
		return tools.ToolResult{Success: false, Error: e.failMsg, ToolName: e.name}, nil
	}
	text, _ := args["text"].(string)
	return tools.ToolResult{
		Success:  true,
		Content:  "echo: " + text,
		Output:   map[string]interface{}{"text": text},
		ToolName: e.name,
	}, nil
}

func newTestExecutor(t *testing.T, toolset ...tools.Tool) *tools.Executor {
	t.Helper()

	reg := tools.NewRegistry()
	for _, tool := range toolset {
		require.NoError(t, reg.RegisterTool(tool), "RegisterTool(%s)", tool.GetName())
	}
	return tools.NewExecutor(reg, config.ToolsConfig{})
}

func newTestServer(t *testing.T, cfg config.ServerConfig, toolset ...tools.Tool) *Server {
	t.Helper()

	if len(toolset) == 0 {
		toolset = []tools.Tool{&echoTool{name: "echo"}}
	}
	srv, err := New(context.Background(), Options{
		Config:   cfg,
		Executor: newTestExecutor(t, toolset...),
		Version:  "test",
	})
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "marshal request body")
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestNew_RequiresExecutor(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{})

	rr := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
}

func TestServer_ListTools(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{})

	rr := doJSON(t, srv.Handler(), http.MethodGet, "/v1/tools", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Tools []tools.ToolInfo `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Tools, 1)

	info := resp.Tools[0]
	assert.Equal(t, "echo", info.Name)
	assert.Equal(t, "object", info.InputSchema["type"])
	assert.Contains(t, info.InputSchema, "properties")
}

func TestServer_CallTool(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{})

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/tools/call", tools.Call{
		Name: "echo",
		Args: map[string]interface{}{"text": "xin chào"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result tools.CallResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Equal(t, tools.StatusSuccess, result.Status, result.Content)
	assert.Equal(t, "echo: xin chào", result.Content)
	assert.NotEmpty(t, result.ToolCallID)
}

func TestServer_CallTool_ToolFailure(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{}, &echoTool{name: "echo", failMsg: "portal is down"})

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/tools/call", tools.Call{Name: "echo"})

	// Tool failures are error results, not transport errors.
	require.Equal(t, http.StatusOK, rr.Code)

	var result tools.CallResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, tools.StatusError, result.Status)
	assert.Contains(t, result.Content, "portal is down")
}

func TestServer_CallTool_UnknownTool(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{})

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/tools/call", tools.Call{Name: "no_such_tool"})
	require.Equal(t, http.StatusOK, rr.Code)

	var result tools.CallResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, tools.StatusError, result.Status)
	assert.Contains(t, result.Content, "not found")
}

func TestServer_CallTool_MissingName(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{})

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/tools/call", tools.Call{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "tool name is required")
}

func TestServer_CallTool_InvalidBody(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/tools/call", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServer_BatchCall(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{},
		&echoTool{name: "echo"},
		&echoTool{name: "broken", failMsg: "boom"},
	)

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/tools/batch", batchRequest{
		Calls: []tools.Call{
			{ID: "call-1", Name: "echo", Args: map[string]interface{}{"text": "a"}},
			{ID: "call-2", Name: "broken"},
			{ID: "call-3", Name: "echo", Args: map[string]interface{}{"text": "b"}},
		},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)

	for i, wantID := range []string{"call-1", "call-2", "call-3"} {
		assert.Equal(t, wantID, resp.Results[i].ToolCallID, "results[%d]", i)
	}
	assert.Equal(t, tools.StatusSuccess, resp.Results[0].Status)
	assert.Equal(t, tools.StatusError, resp.Results[1].Status)
	assert.Equal(t, "echo: b", resp.Results[2].Content)
}

func TestServer_BatchCall_Empty(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{})

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/v1/tools/batch", batchRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "calls cannot be empty")
}

func TestServer_Auth(t *testing.T) {
	privateKey, publicKey := generateRSAKeyPair(t)
	jwksServer := newJWKSServer(t, createJWKS(t, publicKey))

	cfg := config.ServerConfig{
		Auth: config.AuthConfig{
			Enabled:  true,
			JWKSURL:  jwksServer.URL + "/.well-known/jwks.json",
			Issuer:   "https://auth.test",
			Audience: "mentor-api",
		},
	}
	srv := newTestServer(t, cfg)
	handler := srv.Handler()

	// Without a token the API refuses.
	rr := doJSON(t, handler, http.MethodGet, "/v1/tools", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// Health stays open.
	rr = doJSON(t, handler, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// A valid bearer token passes.
	token := createTestJWT(t, privateKey, "https://auth.test", "mentor-api", "sv-21520001", nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/v1/tools/call", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_MCPHTTPMounted(t *testing.T) {
	srv := newTestServer(t, config.ServerConfig{
		MCP: config.MCPConfig{Enabled: true, Transport: config.MCPTransportHTTP},
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	// Any response besides 404 means the MCP endpoint is wired.
	require.NotEqual(t, http.StatusNotFound, rr.Code, "/mcp is not mounted")
}
