// Package metrics exposes the node's prometheus collectors. It mirrors
// the example pack's habit of registering collectors against a
// caller-supplied registry plus a small wrapper type the rest of the app
// updates through, rather than scattering raw prometheus calls across
// business logic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors bundles every metric the node registers. Only LivePeers and
// DeadPeers are updated, by Observer; nothing in this module updates
// GossipRounds, PhiObserved, MessagesSent or MessagesDrops, so they stay
// at their zero values.
type Collectors struct {
	GossipRounds  prometheus.Counter
	LivePeers     prometheus.Gauge
	DeadPeers     prometheus.Gauge
	PhiObserved   prometheus.Histogram
	MessagesSent  *prometheus.CounterVec
	MessagesDrops prometheus.Counter
}

// New registers every collector against reg and returns the bundle.
// Pass prometheus.NewRegistry() in tests to avoid colliding with the
// global default registry across parallel test runs.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		GossipRounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "scuttlebutt",
			Name:      "gossip_rounds_total",
			Help:      "Number of gossip rounds this node has initiated.",
		}),
		LivePeers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "scuttlebutt",
			Name:      "live_peers",
			Help:      "Number of remote peers currently considered alive.",
		}),
		DeadPeers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "scuttlebutt",
			Name:      "dead_peers",
			Help:      "Number of remote peers currently considered dead.",
		}),
		PhiObserved: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scuttlebutt",
			Name:      "phi_observed",
			Help:      "Suspicion level computed for a remote peer on each check.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32},
		}),
		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scuttlebutt",
			Name:      "messages_sent_total",
			Help:      "Wire messages sent, labeled by message type.",
		}, []string{"type"}),
		MessagesDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "scuttlebutt",
			Name:      "messages_dropped_total",
			Help:      "Inbound datagrams dropped for being malformed or unrecognized.",
		}),
	}
}
