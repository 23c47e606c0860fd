package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	envelopesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cruisesync_bridge_envelopes_total",
		Help: "Extractor messages handled, by type.",
	}, []string{"type"})

	duplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cruisesync_bridge_duplicates_total",
		Help: "Network payloads dropped as exact repeats.",
	})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cruisesync_bridge_dropped_total",
		Help: "Extractor messages dropped, by reason.",
	}, []string{"reason"})
)

// Dropped counts a message rejected before reaching Handle.
func Dropped(reason string) { droppedTotal.WithLabelValues(reason).Inc() }
