package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ActiveRooms      prometheus.Gauge
	OpenConnections  prometheus.Gauge
	HandsStarted     prometheus.Counter
	HandsCompleted   prometheus.Counter
	ActionsProcessed *prometheus.CounterVec
	BroadcastFanout  prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms with a live in-memory session",
		}),
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_connections",
			Help:      "Number of live table websocket connections",
		}),
		HandsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hands_started_total",
			Help:      "Total number of hands dealt",
		}),
		HandsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hands_completed_total",
			Help:      "Total number of hands settled",
		}),
		ActionsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_processed_total",
			Help:      "Betting actions accepted, by action type",
		}, []string{"action"}),
		BroadcastFanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_fanout",
			Help:      "Connections reached per room snapshot broadcast",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.ActiveRooms,
		m.OpenConnections,
		m.HandsStarted,
		m.HandsCompleted,
		m.ActionsProcessed,
		m.BroadcastFanout,
	)

	return m
}
