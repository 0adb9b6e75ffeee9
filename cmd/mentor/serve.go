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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mentor "github.com/mentorvn/mentor"
	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/observability"
	"github.com/mentorvn/mentor/pkg/server"
	"github.com/mentorvn/mentor/pkg/tools"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd runs the tool host: the chi JSON API, and the MCP endpoint
// when enabled.
type ServeCmd struct {
	HTTP string `help:"Listen address override (e.g. :9090 or 127.0.0.1:8080)."`
	MCP  bool   `help:"Enable the MCP endpoint with the configured transport."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	cfg, loader, err := loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	if c.HTTP != "" {
		if err := applyListenOverride(&cfg.Server, c.HTTP); err != nil {
			return err
		}
	}
	if c.MCP {
		cfg.Server.MCP.Enabled = true
	}

	metrics, meterProvider, err := observability.InitMetrics(ctx, cfg.Observability.Metrics)
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	observability.SetGlobalMetrics(metrics)
	if meterProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := meterProvider.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Meter provider shutdown failed", "error", err)
			}
		}()
	}

	tracerProvider, err := observability.InitTracer(ctx, cfg.Observability.Tracing)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	if tp, ok := tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Tracer provider shutdown failed", "error", err)
			}
		}()
	}

	comps := newComponents(cfg)
	defer comps.Close()

	executor, err := comps.buildExecutor()
	if err != nil {
		return err
	}

	// Rebuild the BM25 corpus from the chunk artifacts so lexical
	// search reflects everything indexed so far.
	refreshLexical(ctx, comps)

	// Config changes are logged; components are rebuilt on restart only.
	if loader != nil {
		go func() {
			if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("Config watch stopped", "error", err)
			}
		}()
	}

	version := mentor.GetVersion()
	srv, err := server.New(ctx, server.Options{
		Config:   cfg.Server,
		Executor: executor,
		Version:  version.Version,
	})
	if err != nil {
		return err
	}

	stdioMCP := cfg.Server.MCP.Enabled && cfg.Server.MCP.Transport == config.MCPTransportStdio
	printServeInfo(cfg, executor.Registry().ListTools(), stdioMCP)

	httpErr := make(chan error, 1)
	go func() { httpErr <- srv.Start() }()

	// Stdio MCP owns stdin/stdout for the protocol, so it runs on this
	// goroutine next to the HTTP listener.
	mcpErr := make(chan error, 1)
	if stdioMCP {
		go func() { mcpErr <- server.ServeMCPStdio(executor, version.Version) }()
	}

	select {
	case err := <-httpErr:
		return err
	case err := <-mcpErr:
		if err != nil {
			slog.Error("MCP stdio transport failed", "error", err)
		}
		cancel()
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

// applyListenOverride parses --http into the server host/port.
func applyListenOverride(cfg *config.ServerConfig, addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid --http address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid --http port %q: %w", portStr, err)
	}
	if host != "" {
		cfg.Host = host
	}
	cfg.Port = port
	return nil
}

// printServeInfo writes the startup summary. In stdio MCP mode stdout
// carries the protocol stream, so the summary goes through the logger.
func printServeInfo(cfg *config.Config, toolInfos []tools.ToolInfo, stdioMCP bool) {
	names := make([]string, 0, len(toolInfos))
	for _, info := range toolInfos {
		names = append(names, info.Name)
	}

	if stdioMCP {
		slog.Info("Tool host started",
			"address", cfg.Server.Address(),
			"tools", strings.Join(names, ","),
			"mcp", "stdio")
		return
	}

	fmt.Printf("Tool host listening on http://%s\n", cfg.Server.Address())
	fmt.Printf("  Tools:   %s\n", strings.Join(names, ", "))
	fmt.Printf("  Health:  http://%s/healthz\n", cfg.Server.Address())
	if cfg.Observability.Metrics.Enabled {
		fmt.Printf("  Metrics: http://%s%s\n", cfg.Server.Address(), cfg.Observability.Metrics.Endpoint)
	}
	if cfg.Server.MCP.Enabled && cfg.Server.MCP.Transport == config.MCPTransportHTTP {
		fmt.Printf("  MCP:     http://%s/mcp\n", cfg.Server.Address())
	}
	fmt.Println("\nPress Ctrl+C to stop")
}
