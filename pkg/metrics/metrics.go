// Package metrics provides Prometheus metrics for the tool server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ToolMetrics collects per-tool invocation metrics on a private registry.
// It implements core.Observer.
type ToolMetrics struct {
	registry *prometheus.Registry

	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	RegisteredTools    prometheus.Gauge
	UpstreamErrors     *prometheus.CounterVec
}

// NewToolMetrics creates a new tool metrics collector.
func NewToolMetrics() *ToolMetrics {
	registry := prometheus.NewRegistry()

	tm := &ToolMetrics{
		registry: registry,

		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polymarket_tool_invocations_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool", "status"},
		),
		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polymarket_tool_invocation_duration_seconds",
				Help:    "Tool invocation latency including upstream calls",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
			},
			[]string{"tool"},
		),
		RegisteredTools: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "polymarket_registered_tools",
				Help: "Number of registered tools",
			},
		),
		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polymarket_upstream_errors_total",
				Help: "Total number of upstream API failures",
			},
			[]string{"api"},
		),
	}

	registry.MustRegister(
		tm.InvocationsTotal,
		tm.InvocationDuration,
		tm.RegisteredTools,
		tm.UpstreamErrors,
	)

	return tm
}

// Registry returns the prometheus registry.
func (tm *ToolMetrics) Registry() *prometheus.Registry {
	return tm.registry
}

// ObserveInvocation records one tool invocation outcome.
func (tm *ToolMetrics) ObserveInvocation(tool string, isError bool, elapsed time.Duration) {
	status := "ok"
	if isError {
		status = "error"
	}
	tm.InvocationsTotal.WithLabelValues(tool, status).Inc()
	tm.InvocationDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// SetRegisteredTools records the tool count after registration.
func (tm *ToolMetrics) SetRegisteredTools(n int) {
	tm.RegisteredTools.Set(float64(n))
}

// RecordUpstreamError counts an upstream API failure.
func (tm *ToolMetrics) RecordUpstreamError(api string) {
	tm.UpstreamErrors.WithLabelValues(api).Inc()
}
