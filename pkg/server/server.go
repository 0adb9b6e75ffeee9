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

// Package server exposes the tool host over HTTP and MCP.
//
// The HTTP surface is a small chi JSON API: tool definitions, tool
// invocation (single and parallel batch), health and Prometheus metrics.
// The same registry can be served to MCP runtimes over stdio or as a
// streamable HTTP endpoint mounted under /mcp.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/observability"
	"github.com/mentorvn/mentor/pkg/tools"
)

// Server is the HTTP tool-host server.
type Server struct {
	cfg      config.ServerConfig
	executor *tools.Executor
	version  string

	validator  *JWTValidator
	httpServer *http.Server
}

// Options configures New.
type Options struct {
	Config   config.ServerConfig
	Executor *tools.Executor

	// Version is reported on the health endpoint.
	Version string
}

// New creates the server and builds its middleware chain. When auth is
// enabled the JWKS is fetched eagerly so misconfiguration fails startup
// rather than the first request.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Executor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}

	cfg := opts.Config
	cfg.SetDefaults()

	s := &Server{
		cfg:      cfg,
		executor: opts.Executor,
		version:  opts.Version,
	}

	if cfg.Auth.IsEnabled() {
		validator, err := NewJWTValidator(ctx, cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize auth: %w", err)
		}
		s.validator = validator
		slog.Info("JWT authentication enabled", "jwks_url", cfg.Auth.JWKSURL, "issuer", cfg.Auth.Issuer)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// routes assembles the chi router.
//
// Middleware order: logging, metrics, cors, auth.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware)
	r.Use(corsMiddleware)
	if s.validator != nil {
		r.Use(s.validator.Middleware)
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", observability.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/tools", s.handleListTools)
		r.Post("/tools/call", s.handleCallTool)
		r.Post("/tools/batch", s.handleBatchCall)
	})

	if s.cfg.MCP.Enabled && s.cfg.MCP.Transport == config.MCPTransportHTTP {
		r.Mount("/mcp", NewMCPHTTPHandler(s.executor, s.version))
		slog.Info("MCP streamable HTTP endpoint mounted", "path", "/mcp")
	}

	return r
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	slog.Info("HTTP server listening",
		"address", s.cfg.Address(),
		"auth", s.validator != nil,
		"mcp_http", s.cfg.MCP.Enabled && s.cfg.MCP.Transport == config.MCPTransportHTTP)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// toolListResponse is the GET /v1/tools payload.
type toolListResponse struct {
	Tools []tools.ToolInfo `json:"tools"`
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toolListResponse{Tools: s.executor.Registry().ListTools()})
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	var call tools.Call
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if call.Name == "" {
		writeError(w, http.StatusBadRequest, "tool name is required")
		return
	}

	result := s.executor.ExecuteOne(r.Context(), call)
	writeJSON(w, http.StatusOK, result)
}

// batchRequest is the POST /v1/tools/batch payload; calls run in
// parallel and results come back in call order.
type batchRequest struct {
	Calls []tools.Call `json:"calls"`
}

type batchResponse struct {
	Results []tools.CallResult `json:"results"`
}

func (s *Server) handleBatchCall(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Calls) == 0 {
		writeError(w, http.StatusBadRequest, "calls cannot be empty")
		return
	}
	for _, call := range req.Calls {
		if call.Name == "" {
			writeError(w, http.StatusBadRequest, "every call needs a tool name")
			return
		}
	}

	results := s.executor.Execute(r.Context(), req.Calls)
	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
