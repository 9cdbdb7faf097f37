// Package metrics exposes Prometheus collectors for agent, tool and model
// activity. All recording methods are nil-receiver safe so instrumentation
// can be omitted entirely without guard clauses at call sites.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the framework.
type Metrics struct {
	registry *prometheus.Registry

	AgentExecutionsTotal   *prometheus.CounterVec
	AgentExecutionDuration *prometheus.HistogramVec

	ToolExecutionsTotal *prometheus.CounterVec

	ModelCallsTotal *prometheus.CounterVec

	SessionsActive  prometheus.Gauge
	SessionsTotal   prometheus.Counter
	SessionsExpired prometheus.Counter

	MemoryWriteFailuresTotal prometheus.Counter
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		AgentExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_agent_executions_total",
				Help: "Total number of agent executions",
			},
			[]string{"agent_type", "status"},
		),
		AgentExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsight_agent_execution_duration_seconds",
				Help:    "Agent execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent_type"},
		),
		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool", "status"},
		),
		ModelCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_model_calls_total",
				Help: "Total number of LLM gateway calls",
			},
			[]string{"provider", "outcome"},
		),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "finsight_sessions_active",
			Help: "Number of live sessions",
		}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finsight_sessions_total",
			Help: "Total number of sessions created",
		}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finsight_sessions_expired_total",
			Help: "Total number of sessions reclaimed after expiry",
		}),
		MemoryWriteFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finsight_memory_write_failures_total",
			Help: "Total number of swallowed memory persistence failures",
		}),
	}

	registry.MustRegister(
		m.AgentExecutionsTotal,
		m.AgentExecutionDuration,
		m.ToolExecutionsTotal,
		m.ModelCallsTotal,
		m.SessionsActive,
		m.SessionsTotal,
		m.SessionsExpired,
		m.MemoryWriteFailuresTotal,
	)

	return m
}

// Handler returns an HTTP handler serving the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAgent records one finished agent execution.
func (m *Metrics) ObserveAgent(agentType, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AgentExecutionsTotal.WithLabelValues(agentType, status).Inc()
	m.AgentExecutionDuration.WithLabelValues(agentType).Observe(elapsed.Seconds())
}

// ObserveTool records one tool execution.
func (m *Metrics) ObserveTool(tool, status string) {
	if m == nil {
		return
	}
	m.ToolExecutionsTotal.WithLabelValues(tool, status).Inc()
}

// ObserveModelCall records one gateway round-trip.
func (m *Metrics) ObserveModelCall(provider, outcome string) {
	if m == nil {
		return
	}
	m.ModelCallsTotal.WithLabelValues(provider, outcome).Inc()
}

// SessionCreated increments session counters.
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active gauge; expired marks reclamation.
func (m *Metrics) SessionClosed(expired bool) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	if expired {
		m.SessionsExpired.Inc()
	}
}

// MemoryWriteFailed counts a swallowed persistence error.
func (m *Metrics) MemoryWriteFailed() {
	if m == nil {
		return
	}
	m.MemoryWriteFailuresTotal.Inc()
}
