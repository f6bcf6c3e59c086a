// Package metrics exposes prometheus instrumentation for the dispatch path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "opgate_dispatch_total", Help: "dispatched calls by opcode and outcome"},
		[]string{"opcode", "outcome"},
	)

	dispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opgate_dispatch_duration_seconds",
			Help:    "end-to-end dispatch duration.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)
)

func init() {
	prometheus.MustRegister(dispatchTotal, dispatchDuration)
}

// ObserveDispatch records one dispatched call. opcode is the fixed-width
// hex key; outcome is the journal outcome string.
func ObserveDispatch(opcode, outcome string, d time.Duration) {
	dispatchTotal.WithLabelValues(opcode, outcome).Inc()
	dispatchDuration.Observe(d.Seconds())
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler { return promhttp.Handler() }
