package twap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "twap_sdk"

// Metrics holds the client's Prometheus collectors
type Metrics struct {
	fetches        *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	fetchRetries   prometheus.Counter
	pendingOrders  prometheus.Gauge
	canceledOrders prometheus.Counter
	staleResults   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "order_fetches_total",
			Help:      "Order history fetches by outcome.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "order_fetch_duration_seconds",
			Help:      "Duration of order history fetches including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		fetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "order_fetch_retries_total",
			Help:      "Order history fetch attempts that were retried.",
		}),
		pendingOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "overlay_pending_orders",
			Help:      "Submitted orders not yet returned by the order source, across all accounts.",
		}),
		canceledOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "overlay_canceled_orders_total",
			Help:      "Orders recorded as canceled locally.",
		}),
		staleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "poller_stale_results_total",
			Help:      "Poll results discarded because the session changed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.fetchDuration, m.fetchRetries, m.pendingOrders, m.canceledOrders, m.staleResults)
	}
	return m
}

func (m *Metrics) observeFetch(start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.fetches.WithLabelValues(result).Inc()
	m.fetchDuration.Observe(time.Since(start).Seconds())
}
