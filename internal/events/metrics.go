package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors a Bus updates.
type Metrics struct {
	Published   *prometheus.CounterVec
	Missed      prometheus.Counter
	Evicted     prometheus.Counter
	Subscribers prometheus.Gauge
}

// NewMetrics creates the bus collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventboard",
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Messages published on the notification bus, by topic.",
		}, []string{"topic"}),
		Missed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "eventboard",
			Subsystem: "bus",
			Name:      "missed_total",
			Help:      "Deliveries skipped because a subscriber's buffer was full.",
		}),
		Evicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "eventboard",
			Subsystem: "bus",
			Name:      "evicted_total",
			Help:      "Subscribers dropped after missing too many consecutive messages.",
		}),
		Subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventboard",
			Subsystem: "bus",
			Name:      "subscribers",
			Help:      "Currently connected subscribers.",
		}),
	}
}
