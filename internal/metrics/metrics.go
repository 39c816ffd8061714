package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage labels for WebhookEventsTotal.
const (
	StageEmitted   = "emitted"
	StageDropped   = "dropped"
	StageSkipped   = "skipped"
	StageDelivered = "delivered"
	StageFailed    = "failed"
	StageConflict  = "conflict"
	StageDeferred  = "deferred"
)

// Source labels: who attempted the delivery.
const (
	SourceEmit   = "emit"
	SourceSweep  = "sweep"
	SourceManual = "manual"
)

var (
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywall_webhook_events_total",
			Help: "Webhook event lifecycle counter by stage and source",
		},
		[]string{"stage", "source"},
	)

	WebhookDeliverySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paywall_webhook_delivery_seconds",
			Help:    "Duration of a single signed webhook POST",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	SweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywall_webhook_sweeps_total",
			Help: "Retry sweep cycles by result",
		},
		[]string{"result"}, // ran|skipped|error
	)

	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywall_payments_total",
			Help: "Payment status transitions applied",
		},
		[]string{"status", "channel"}, // paid|refused|expired , http|kafka
	)
)

var registerOnce sync.Once

// MustRegister registers all collectors once; later calls are no-ops so the
// serve and worker commands can share it.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			WebhookEventsTotal,
			WebhookDeliverySeconds,
			SweepsTotal,
			PaymentsTotal,
		)
	})
}
