// Package metrics holds the prometheus collectors for the realtime service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics represents the collectors updated by the hub and gateway
type Metrics struct {

	// Connections is the number of currently open websocket connections
	Connections prometheus.Gauge

	// Published counts Publish calls by event type
	Published *prometheus.CounterVec

	// Delivered counts envelopes handed to a recipient's send buffer
	Delivered prometheus.Counter

	// Dropped counts envelopes skipped because a recipient's send
	// buffer was full
	Dropped prometheus.Counter
}

// New returns Metrics registered with reg. Tests pass a fresh registry so
// instances do not collide.
func New(reg prometheus.Registerer) *Metrics {

	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "realtime",
			Name:      "connections",
			Help:      "Number of open websocket connections.",
		}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realtime",
			Name:      "published_total",
			Help:      "Envelopes published, by event type.",
		}, []string{"type"}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime",
			Name:      "delivered_total",
			Help:      "Envelopes handed to a recipient send buffer.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime",
			Name:      "dropped_total",
			Help:      "Envelopes skipped because a recipient was not keeping up.",
		}),
	}

	reg.MustRegister(m.Connections, m.Published, m.Delivered, m.Dropped)

	return m
}

// NewDefault returns Metrics registered with the default registry
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
