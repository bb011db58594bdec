// Package metrics holds the Prometheus collectors of the daemon. They are
// registered on the default registry and served by the HTTP transport.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Interpretation paths.
const (
	PathRules    = "rules"
	PathFallback = "fallback"
	PathCached   = "cache"
	PathDegraded = "degraded"
)

var (
	// Interpretations counts interpret calls by decision path and intent.
	Interpretations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domus",
		Subsystem: "pipeline",
		Name:      "interpretations_total",
		Help:      "Interpretations by decision path and resulting intent",
	}, []string{"path", "intent"})

	// InterpretLatency observes the whole interpret call.
	InterpretLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "domus",
		Subsystem: "pipeline",
		Name:      "interpret_latency_seconds",
		Help:      "Interpret latency by decision path",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.1, 1, 5, 30, 60},
	}, []string{"path"})

	// FallbackCalls counts fallback completions by outcome (ok, error).
	FallbackCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domus",
		Subsystem: "fallback",
		Name:      "calls_total",
		Help:      "Fallback model calls by outcome",
	}, []string{"backend", "outcome"})

	// FallbackLatency observes fallback completion calls.
	FallbackLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "domus",
		Subsystem: "fallback",
		Name:      "latency_seconds",
		Help:      "Latency of fallback model calls",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// FallbackAvailable is 1 while the fallback is reachable.
	FallbackAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "domus",
		Subsystem: "fallback",
		Name:      "available",
		Help:      "Whether the fallback model is currently reachable",
	})

	// CacheLookups counts fallback cache lookups (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domus",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Fallback cache lookups by result",
	}, []string{"result"})

	// Devices is the size of the published device snapshot.
	Devices = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "domus",
		Subsystem: "devices",
		Name:      "loaded",
		Help:      "Devices in the published snapshot",
	})

	// Reloads counts device reloads by outcome (ok, error).
	Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domus",
		Subsystem: "devices",
		Name:      "reloads_total",
		Help:      "Device snapshot reloads by outcome",
	}, []string{"outcome"})

	// Executions counts execute calls by outcome (executed, skipped, failed).
	Executions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domus",
		Subsystem: "executor",
		Name:      "executions_total",
		Help:      "Backend executions by outcome",
	}, []string{"outcome"})
)

// Outcome returns "ok" for a nil error and "error" otherwise.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Bool returns 1 for true and 0 for false.
func Bool(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
