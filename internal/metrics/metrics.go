// Package metrics exposes session.MetricsHook backed by
// prometheus/client_golang, wired into cmd/zenlited's "serve" command.
// The core package never imports this one — session.WithMetrics takes
// the interface, so the session stays usable without a metrics server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector implements session.MetricsHook.
type Collector struct {
	pendingQueries prometheus.Gauge
	subscriptions  prometheus.Gauge
	repliesDropped *prometheus.CounterVec
}

// NewCollector builds a Collector and registers its metrics against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pendingQueries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_pending_queries",
			Help: "Number of queries currently awaiting a final reply.",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_subscriptions_total",
			Help: "Number of active subscriptions across both partitions.",
		}),
		repliesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_replies_dropped_total",
			Help: "Inbound replies dropped before reaching a callback, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(c.pendingQueries, c.subscriptions, c.repliesDropped)
	return c
}

// SetPendingQueries implements session.MetricsHook.
func (c *Collector) SetPendingQueries(n int) { c.pendingQueries.Set(float64(n)) }

// SetSubscriptions implements session.MetricsHook.
func (c *Collector) SetSubscriptions(n int) { c.subscriptions.Set(float64(n)) }

// IncReplyDropped implements session.MetricsHook.
func (c *Collector) IncReplyDropped(reason string) { c.repliesDropped.WithLabelValues(reason).Inc() }
