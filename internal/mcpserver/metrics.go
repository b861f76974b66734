package mcpserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mulmoprep_mcp_tool_calls_total",
		Help: "MCP tool calls by tool and outcome.",
	}, []string{"tool", "outcome"})

	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mulmoprep_mcp_tool_duration_seconds",
		Help:    "MCP tool call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	authFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mulmoprep_mcp_auth_failures_total",
		Help: "HTTP requests rejected for a missing or invalid API key.",
	})
)
