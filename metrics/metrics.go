package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry holds the service collectors exposed on /metrics.
	Registry = prometheus.NewRegistry()

	RequestsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cashier",
			Subsystem: "requests",
			Name:      "created_total",
			Help:      "Payment requests created, by kind.",
		},
		[]string{"kind"},
	)

	Settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cashier",
			Subsystem: "requests",
			Name:      "settlements_total",
			Help:      "Attempted pending-request transitions, by target status and result.",
		},
		[]string{"status", "result"},
	)

	BalanceAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cashier",
			Subsystem: "ledger",
			Name:      "admin_adjustments_total",
			Help:      "Administrative balance adjustments, by action and result.",
		},
		[]string{"action", "result"},
	)

	SideChannelDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cashier",
			Subsystem: "notifications",
			Name:      "side_channel_total",
			Help:      "Side-channel notification attempts, by result.",
		},
		[]string{"result"},
	)

	SideChannelDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cashier",
			Subsystem: "notifications",
			Name:      "side_channel_duration_seconds",
			Help:      "Duration of side-channel sends.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cashier",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RequestsCreated,
		Settlements,
		BalanceAdjustments,
		SideChannelDeliveries,
		SideChannelDuration,
		HTTPDuration,
	)
}
