// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ControllerRequests counts controller API calls by endpoint and status code.
	ControllerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nwpiagent_controller_requests_total",
		Help: "Controller API requests by endpoint and HTTP status",
	}, []string{"endpoint", "status"})

	// ControllerLatency observes controller API call duration.
	ControllerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nwpiagent_controller_request_seconds",
		Help:    "Controller API request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// FlowReconstructions counts flow detail reconstructions by mode.
	FlowReconstructions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nwpiagent_flow_reconstructions_total",
		Help: "Flow detail reconstructions by strategy mode",
	}, []string{"mode"})

	// FlowHops counts reconstructed hops by direction.
	FlowHops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nwpiagent_flow_hops_total",
		Help: "Reconstructed hops by direction",
	}, []string{"direction"})

	// FlowCacheHits counts flow detail lookups served from cache.
	FlowCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nwpiagent_flow_cache_hits_total",
		Help: "Flow detail lookups served from cache",
	})

	// ToolCalls counts agent tool executions by tool and outcome.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nwpiagent_tool_calls_total",
		Help: "Agent tool executions by tool and outcome",
	}, []string{"tool", "outcome"})

	// AlertsReceived counts alerts by source and whether they were firing.
	AlertsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nwpiagent_alerts_total",
		Help: "Alerts received by source and firing state",
	}, []string{"source", "firing"})

	// GraphSteps counts supervisor routing decisions by target.
	GraphSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nwpiagent_graph_routes_total",
		Help: "Supervisor routing decisions by target",
	}, []string{"next"})

	// LLMRequests counts chat completion calls by model and outcome.
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nwpiagent_llm_requests_total",
		Help: "Chat completion requests by model and outcome",
	}, []string{"model", "outcome"})

	// LLMTokens counts tokens reported by the model API.
	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nwpiagent_llm_tokens_total",
		Help: "Tokens consumed by kind",
	}, []string{"kind"})
)

// ObserveControllerCall records one controller request.
func ObserveControllerCall(endpoint string, status int, started time.Time) {
	ControllerRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	ControllerLatency.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

// ObserveReconstruction records the outcome of one flow reconstruction.
func ObserveReconstruction(mode string, upstream, downstream int) {
	FlowReconstructions.WithLabelValues(mode).Inc()
	FlowHops.WithLabelValues("upstream").Add(float64(upstream))
	FlowHops.WithLabelValues("downstream").Add(float64(downstream))
}
