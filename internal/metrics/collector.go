// Package metrics provides Prometheus collectors for the MCP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the server's operational metrics. Tool-level counters are
// labeled by tool name; error counters additionally carry the error category
// so auth failures and rate limits are distinguishable on a dashboard.
type Collector struct {
	toolCalls      *prometheus.CounterVec
	toolErrors     *prometheus.CounterVec
	toolsGenerated prometheus.Gauge
}

// NewCollector creates and registers the collectors on reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool invocations",
			},
			[]string{"tool"},
		),
		toolErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_errors_total",
				Help:      "Total number of failed tool invocations",
			},
			[]string{"tool", "category"},
		),
		toolsGenerated: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tools_generated",
				Help:      "Number of tools generated from the OpenAPI spec",
			},
		),
	}
}

// RecordToolCall counts one invocation of tool.
func (c *Collector) RecordToolCall(tool string) {
	c.toolCalls.WithLabelValues(tool).Inc()
}

// RecordToolError counts one failed invocation of tool with the given error
// category (the error type name carried in the failure result).
func (c *Collector) RecordToolError(tool, category string) {
	c.toolErrors.WithLabelValues(tool, category).Inc()
}

// SetToolCount records the size of the generated tool catalog.
func (c *Collector) SetToolCount(n int) {
	c.toolsGenerated.Set(float64(n))
}
