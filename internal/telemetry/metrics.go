package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatTurns counts chat requests by scope and outcome.
	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildfast",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns handled, by scope and outcome.",
		},
		[]string{"scope", "outcome"},
	)

	// ModelRounds counts model calls within chat turns.
	ModelRounds = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildfast",
			Subsystem: "chat",
			Name:      "model_rounds_total",
			Help:      "Streaming model calls made while serving chat turns.",
		},
	)

	// ToolCalls counts tool executions by tool and result.
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildfast",
			Subsystem: "chat",
			Name:      "tool_calls_total",
			Help:      "Tool calls executed on behalf of the model.",
		},
		[]string{"tool", "ok"},
	)

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildfast",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status class.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	// RateLimited counts chat requests rejected by the per-user limiter.
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildfast",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Chat requests rejected by the per-user rate limiter.",
		},
	)
)
