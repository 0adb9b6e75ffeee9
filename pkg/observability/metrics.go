package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the instrument set for the substrate: pipeline stage
// execution, retrieval, rerank fallbacks, and tool calls. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	stageExecutions metric.Int64Counter
	stageFailures   metric.Int64Counter
	stageCost       metric.Float64Counter
	stageDuration   metric.Float64Histogram

	retrievalRequests metric.Int64Counter
	retrievalDuration metric.Float64Histogram
	rerankFallbacks   metric.Int64Counter

	toolCalls    metric.Int64Counter
	toolErrors   metric.Int64Counter
	toolDuration metric.Float64Histogram

	httpRequests metric.Int64Counter
	httpDuration metric.Float64Histogram
}

// InitMetrics builds the otel meter provider with a Prometheus reader and
// creates all instruments. Returns an inert *Metrics when disabled.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*Metrics, *sdkmetric.MeterProvider, error) {
	if !cfg.Enabled {
		return &Metrics{}, nil, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("mentor")
	m := &Metrics{}

	if m.stageExecutions, err = meter.Int64Counter(
		"mentor_stage_executions_total",
		metric.WithDescription("Total pipeline stage executions"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create stage executions counter: %w", err)
	}

	if m.stageFailures, err = meter.Int64Counter(
		"mentor_stage_failures_total",
		metric.WithDescription("Total pipeline stage failures"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create stage failures counter: %w", err)
	}

	if m.stageCost, err = meter.Float64Counter(
		"mentor_stage_cost_usd_total",
		metric.WithDescription("Accumulated pipeline stage cost in USD"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create stage cost counter: %w", err)
	}

	if m.stageDuration, err = meter.Float64Histogram(
		"mentor_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create stage duration histogram: %w", err)
	}

	if m.retrievalRequests, err = meter.Int64Counter(
		"mentor_retrieval_requests_total",
		metric.WithDescription("Total retrieval requests"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create retrieval requests counter: %w", err)
	}

	if m.retrievalDuration, err = meter.Float64Histogram(
		"mentor_retrieval_duration_seconds",
		metric.WithDescription("Retrieval request duration in seconds"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create retrieval duration histogram: %w", err)
	}

	if m.rerankFallbacks, err = meter.Int64Counter(
		"mentor_rerank_fallbacks_total",
		metric.WithDescription("Total rerank calls that fell back to raw order"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create rerank fallbacks counter: %w", err)
	}

	if m.toolCalls, err = meter.Int64Counter(
		"mentor_tool_calls_total",
		metric.WithDescription("Total tool calls"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	if m.toolErrors, err = meter.Int64Counter(
		"mentor_tool_errors_total",
		metric.WithDescription("Total tool errors"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create tool errors counter: %w", err)
	}

	if m.toolDuration, err = meter.Float64Histogram(
		"mentor_tool_duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create tool duration histogram: %w", err)
	}

	if m.httpRequests, err = meter.Int64Counter(
		"mentor_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	if m.httpDuration, err = meter.Float64Histogram(
		"mentor_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	return m, meterProvider, nil
}

// RecordStageExecution records one stage run with its outcome and cost.
func (m *Metrics) RecordStageExecution(ctx context.Context, category, stage string, duration time.Duration, costUSD float64, err error) {
	if m == nil || m.stageExecutions == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("stage", stage),
	)

	m.stageExecutions.Add(ctx, 1, attrs)
	m.stageDuration.Record(ctx, duration.Seconds(), attrs)

	if costUSD > 0 {
		m.stageCost.Add(ctx, costUSD, attrs)
	}
	if err != nil {
		m.stageFailures.Add(ctx, 1, attrs)
	}
}

// RecordRetrieval records one retrieval request against a collection.
func (m *Metrics) RecordRetrieval(ctx context.Context, collection string, duration time.Duration) {
	if m == nil || m.retrievalRequests == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("collection", collection))
	m.retrievalRequests.Add(ctx, 1, attrs)
	m.retrievalDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRerankFallback records a rerank call that fell back to raw order.
func (m *Metrics) RecordRerankFallback(ctx context.Context, reason string) {
	if m == nil || m.rerankFallbacks == nil {
		return
	}
	m.rerankFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordToolCall records one tool invocation.
func (m *Metrics) RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil || m.toolCalls == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		m.toolErrors.Add(ctx, 1, attrs)
	}
}

// RecordHTTPRequest records one served HTTP request by route pattern.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", statusCode),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
}

// Handler exposes the Prometheus registry the otel reader feeds.
func Handler() http.Handler {
	return promhttp.Handler()
}

var (
	globalMetrics *Metrics
	metricsMu     sync.RWMutex
)

// SetGlobalMetrics installs the process-wide metrics recorder.
func SetGlobalMetrics(m *Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

// GlobalMetrics returns the process-wide metrics recorder; may be nil,
// which is safe to record against.
func GlobalMetrics() *Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
