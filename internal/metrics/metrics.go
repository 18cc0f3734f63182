// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "devmatch"

// Drop reasons for DroppedEvents.
const (
	ReasonMalformed   = "malformed"
	ReasonRateLimited = "rate_limited"
	ReasonEmpty       = "empty"
	ReasonNotMember   = "not_member"
	ReasonStoreError  = "store_error"
)

type Metrics struct {
	Connections    prometheus.Gauge
	OnlineUsers    prometheus.Gauge
	InboundEvents  *prometheus.CounterVec
	DroppedEvents  *prometheus.CounterVec
	Deliveries     *prometheus.CounterVec
	Evictions      prometheus.Counter
	CompatOutcomes *prometheus.CounterVec
}

// New creates and registers the collectors on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "connections",
			Help:      "Open websocket connections.",
		}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "online_users",
			Help:      "Distinct users with at least one open connection.",
		}),
		InboundEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "inbound_events_total",
			Help:      "Client events received, by event name.",
		}, []string{"event"}),
		DroppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "dropped_events_total",
			Help:      "Client events silently dropped, by event name and reason.",
		}, []string{"event", "reason"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "deliveries_total",
			Help:      "Server frames queued to connections, by event name.",
		}, []string{"event"}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "slow_consumer_evictions_total",
			Help:      "Connections closed because their send buffer was full.",
		}),
		CompatOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compat",
			Name:      "jobs_total",
			Help:      "Compatibility scoring jobs, by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Connections,
			m.OnlineUsers,
			m.InboundEvents,
			m.DroppedEvents,
			m.Deliveries,
			m.Evictions,
			m.CompatOutcomes,
		)
	}
	return m
}

// Drop counts a silently dropped client event.
func (m *Metrics) Drop(event, reason string) {
	m.DroppedEvents.WithLabelValues(event, reason).Inc()
}
