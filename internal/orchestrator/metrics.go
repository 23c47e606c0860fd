package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stepResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cruisesync_step_resolutions_total",
	Help: "Step waits resolved, by step and what resolved them.",
}, []string{"step", "reason"})
