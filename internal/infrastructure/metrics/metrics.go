package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harmix",
			Subsystem: "assistant_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "harmix",
			Subsystem: "assistant_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harmix",
			Subsystem: "assistant_api",
			Name:      "turns_total",
			Help:      "Total message turns by outcome",
		},
		[]string{"path", "outcome"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "harmix",
			Subsystem: "assistant_api",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"path"},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "harmix",
			Subsystem: "assistant_api",
			Name:      "active_streams",
			Help:      "Currently active SSE connections",
		},
	)

	WorkflowRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harmix",
			Subsystem: "assistant_api",
			Name:      "workflow_runs_total",
			Help:      "Total workflow executions by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	IntegrationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harmix",
			Subsystem: "assistant_api",
			Name:      "integration_requests_total",
			Help:      "Total integration provider calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// RecordRequest captures one finished HTTP request.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	RequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	RequestDuration.WithLabelValues(method, endpoint, code).Observe(duration.Seconds())
}

// RecordTurn captures one finished message turn. Path is "agent" or "relay".
func RecordTurn(path, outcome string, duration time.Duration) {
	TurnsTotal.WithLabelValues(path, outcome).Inc()
	TurnDuration.WithLabelValues(path).Observe(duration.Seconds())
}
