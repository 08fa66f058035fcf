package billing

import (
	"github.com/mihaimyh/gorenew/pkg/renewal"
)

// Config defines the standard configuration all importers accept
type Config struct {
	// Manager receives the imported subscriptions
	Manager *renewal.Manager

	// APIKey is used for outbound API calls to the billing provider.
	APIKey string

	// WebhookSecret verifies inbound webhook signatures. Webhooks are rejected while empty.
	WebhookSecret string

	// Metrics is an optional metrics collector for tracking billing provider operations.
	// If nil, metrics will be silently ignored (no-op).
	// Use billing/metrics/prometheus.DefaultMetrics(namespace) for Prometheus metrics.
	Metrics Metrics

	// Logger is an optional structured logger (default: renewal.NoopLogger)
	Logger renewal.Logger
}
