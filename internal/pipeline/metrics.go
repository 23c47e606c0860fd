package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commitWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cruisesync_commit_writes_total",
	Help: "Snapshot writes during commit by kind and result.",
}, []string{"kind", "result"})
