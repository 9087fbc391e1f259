// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideation_autosave_saves_total",
			Help: "Autosave attempts by result.",
		},
		[]string{"result"},
	)

	SaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ideation_autosave_duration_seconds",
			Help:    "Time spent writing an item list to the store.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideation_exports_total",
			Help: "PNG exports by result.",
		},
		[]string{"result"},
	)

	PresenceMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideation_presence_messages_total",
			Help: "Presence records by transport and outcome.",
		},
		[]string{"transport", "outcome"},
	)

	PresenceChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ideation_presence_channels",
			Help: "Channels with at least one known participant.",
		},
	)
)

func init() {
	prometheus.MustRegister(SavesTotal)
	prometheus.MustRegister(SaveDuration)
	prometheus.MustRegister(ExportsTotal)
	prometheus.MustRegister(PresenceMessages)
	prometheus.MustRegister(PresenceChannels)
}

// Result labels a counter with ok or error.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
