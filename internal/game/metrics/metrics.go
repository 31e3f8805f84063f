// Package metrics exposes the simulation's Prometheus collectors: action
// throughput by outcome, handler-chain depth, proof duration, and the
// simulation clock.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the simulation's own Prometheus collectors, kept
// separate from the default global registry so embedding this module
// into a larger process never collides with its metrics.
var Registry = prometheus.NewRegistry()

var (
	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dungeonsim",
			Subsystem: "engine",
			Name:      "actions_total",
			Help:      "Total executed actions, grouped by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	handlerChainDepth = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dungeonsim",
			Subsystem: "handler",
			Name:      "chain_depth",
			Help:      "Depth reached by the reactive handler queue per executed action.",
			Buckets:   prometheus.LinearBuckets(0, 1, 17), // 0..16, matching MAX_HOOK_DEPTH default
		},
	)

	handlerActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dungeonsim",
			Subsystem: "handler",
			Name:      "generated_actions_total",
			Help:      "Total actions generated by handlers, grouped by handler name and outcome.",
		},
		[]string{"handler", "outcome"},
	)

	proofDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dungeonsim",
			Subsystem: "zkvm",
			Name:      "proof_duration_seconds",
			Help:      "Duration of Prover.Prove calls, grouped by backend and outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"backend", "outcome"},
	)

	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dungeonsim",
			Subsystem: "zkvm",
			Name:      "verify_duration_seconds",
			Help:      "Duration of Prover.Verify calls, grouped by backend and outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"backend", "outcome"},
	)

	clockGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dungeonsim",
			Subsystem: "turn",
			Name:      "clock_ticks",
			Help:      "Current value of the simulation clock.",
		},
	)

	activeEntities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dungeonsim",
			Subsystem: "turn",
			Name:      "active_entities",
			Help:      "Current number of entities in the active set.",
		},
	)
)

func init() {
	Registry.MustRegister(
		actionsTotal,
		handlerChainDepth,
		handlerActionsTotal,
		proofDuration,
		verifyDuration,
		clockGauge,
		activeEntities,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an http.Handler exposing this module's metrics in the
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordAction records one executed action's kind and outcome ("ok", a
// Phase string like "pre_validate"/"apply"/"post_validate", "prove_error",
// or "error").
func RecordAction(kind, outcome string) {
	actionsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordHandlerChainDepth records the depth the handler queue reached
// processing one top-level action.
func RecordHandlerChainDepth(depth int) {
	handlerChainDepth.Observe(float64(depth))
}

// RecordHandlerAction records one handler-generated action's outcome.
func RecordHandlerAction(handler, outcome string) {
	handlerActionsTotal.WithLabelValues(handler, outcome).Inc()
}

// RecordProve records the duration and outcome of one Prover.Prove call.
func RecordProve(backend string, dur time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	proofDuration.WithLabelValues(backend, outcome).Observe(dur.Seconds())
}

// RecordVerify records the duration and outcome of one Prover.Verify call.
func RecordVerify(backend string, dur time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	verifyDuration.WithLabelValues(backend, outcome).Observe(dur.Seconds())
}

// SetClock publishes the current simulation clock value.
func SetClock(ticks uint64) { clockGauge.Set(float64(ticks)) }

// SetActiveEntities publishes the current size of the active set.
func SetActiveEntities(n int) { activeEntities.Set(float64(n)) }
