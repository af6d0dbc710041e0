package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/netopt/optiview/internal/models"
)

var (
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optiview_refresh_total",
			Help: "Total number of refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optiview_cycles_total",
			Help: "Total number of optimization cycles run by outcome",
		},
		[]string{"outcome"},
	)

	CycleDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "optiview_cycle_duration_seconds",
			Help:    "Duration of optimization cycles from trigger to idle",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "optiview_connection_state",
			Help: "Whether the optimizer service is reachable (1) or not (0)",
		},
	)

	ToastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optiview_toasts_total",
			Help: "Total number of toasts shown by kind",
		},
		[]string{"kind"},
	)
)

// RecordRefresh records the outcome of a refresh, manual or background.
func RecordRefresh(ok bool) {
	RefreshTotal.WithLabelValues(outcome(ok)).Inc()
}

// RecordCycle records a completed cycle and its duration.
func RecordCycle(ok bool, duration time.Duration) {
	CyclesTotal.WithLabelValues(outcome(ok)).Inc()
	CycleDurationSeconds.Observe(duration.Seconds())
}

// SetConnectionState mirrors the connection state into the gauge.
func SetConnectionState(connected bool) {
	if connected {
		ConnectionState.Set(1)
	} else {
		ConnectionState.Set(0)
	}
}

// RecordToast counts a shown toast by kind.
func RecordToast(kind models.ToastKind) {
	ToastsTotal.WithLabelValues(string(kind)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
