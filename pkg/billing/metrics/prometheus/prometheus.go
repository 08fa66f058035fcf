package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mihaimyh/gorenew/pkg/billing"
)

// Metrics implements billing.Metrics using Prometheus.
type Metrics struct {
	syncTotal       *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
	importsTotal    *prometheus.CounterVec
	apiCallsTotal   *prometheus.CounterVec
	apiCallDuration *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
	webhookErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Prometheus metrics implementation for billing importers.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		syncTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "customer_sync_total",
			Help:      "Total number of customer synchronization operations.",
		}, []string{"provider", "status"}),

		syncDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "customer_sync_duration_seconds",
			Help:      "Duration of customer synchronization operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),

		importsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "subscription_imports_total",
			Help:      "Total number of provider subscriptions processed, by outcome.",
		}, []string{"provider", "outcome"}),

		apiCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "api_calls_total",
			Help:      "Total number of API calls to billing providers.",
		}, []string{"provider", "endpoint", "status"}),

		apiCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "api_call_duration_seconds",
			Help:      "Duration of API calls to billing providers in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "endpoint"}),

		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Total number of webhook events processed.",
		}, []string{"provider", "event_type", "status"}),

		webhookErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_errors_total",
			Help:      "Total number of rejected webhook requests.",
		}, []string{"provider", "error_type"}),
	}
}

func (m *Metrics) RecordSync(provider, status string) {
	m.syncTotal.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) RecordSyncDuration(provider string, duration time.Duration) {
	m.syncDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordImport(provider, outcome string) {
	m.importsTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordAPICall(provider, endpoint, status string) {
	m.apiCallsTotal.WithLabelValues(provider, endpoint, status).Inc()
}

func (m *Metrics) RecordAPICallDuration(provider, endpoint string, duration time.Duration) {
	m.apiCallDuration.WithLabelValues(provider, endpoint).Observe(duration.Seconds())
}

func (m *Metrics) RecordWebhookEvent(provider, eventType, status string) {
	m.webhookEvents.WithLabelValues(provider, eventType, status).Inc()
}

func (m *Metrics) RecordWebhookError(provider, errorType string) {
	m.webhookErrors.WithLabelValues(provider, errorType).Inc()
}

// DefaultMetrics returns a Metrics implementation using the default Prometheus registerer.
func DefaultMetrics(namespace string) billing.Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}
