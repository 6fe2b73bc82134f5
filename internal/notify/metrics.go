package notify

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts scheduler adapter outcomes.
type Metrics struct {
	Scheduled prometheus.Counter
	Skipped   prometheus.Counter
	Failed    prometheus.Counter
	Cancelled prometheus.Counter
	Delivered prometheus.Counter
}

// NewMetrics creates the counters and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calendario",
		Subsystem: "notifications",
		Name:      "total",
		Help:      "Notification commands by outcome.",
	}, []string{"outcome"})

	m := &Metrics{
		Scheduled: outcomes.WithLabelValues("scheduled"),
		Skipped:   outcomes.WithLabelValues("skipped_past"),
		Failed:    outcomes.WithLabelValues("failed"),
		Cancelled: outcomes.WithLabelValues("cancelled"),
		Delivered: outcomes.WithLabelValues("delivered"),
	}
	if reg != nil {
		reg.MustRegister(outcomes)
	}
	return m
}
