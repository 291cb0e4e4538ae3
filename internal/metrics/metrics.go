package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bandsentinel_ticks_total", Help: "Price observations accepted into a window"},
		[]string{"symbol"},
	)
	RejectedTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bandsentinel_rejected_ticks_total", Help: "Price observations rejected by validation or ordering"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bandsentinel_signals_total", Help: "Actionable signals emitted"},
		[]string{"symbol", "kind"},
	)
	WindowFill = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "bandsentinel_window_fill", Help: "Observations held in the rolling window"},
		[]string{"symbol"},
	)
	SourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bandsentinel_source_errors_total", Help: "Failed price source fetches"},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, RejectedTicksTotal, SignalsTotal, WindowFill, SourceErrorsTotal)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
