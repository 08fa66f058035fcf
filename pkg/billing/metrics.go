package billing

import "time"

// Metrics defines the interface for tracking billing provider operations.
// All methods are optional - providers should gracefully handle nil metrics.
type Metrics interface {
	// RecordSync records a customer synchronization operation.
	// status: "success" or "error"
	RecordSync(provider, status string)

	// RecordSyncDuration records how long a customer sync took.
	RecordSyncDuration(provider string, duration time.Duration)

	// RecordImport records the outcome for one provider subscription.
	// outcome: "created", "updated" or "skipped"
	RecordImport(provider, outcome string)

	// RecordAPICall records an API call to the billing provider.
	// endpoint: The API endpoint called (e.g., "/subscriptions/list")
	// status: "200" or "error"
	RecordAPICall(provider, endpoint, status string)

	// RecordAPICallDuration records how long an API call took.
	RecordAPICallDuration(provider, endpoint string, duration time.Duration)

	// RecordWebhookEvent records a processed webhook event.
	// status: "success", "ignored" or "error"
	RecordWebhookEvent(provider, eventType, status string)

	// RecordWebhookError records a rejected webhook request.
	// errorType: "payload_too_large", "invalid_payload", "auth_failed", "missing_owner"
	RecordWebhookError(provider, errorType string)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordSync(_, _ string)                             {}
func (n *NoopMetrics) RecordSyncDuration(_ string, _ time.Duration)       {}
func (n *NoopMetrics) RecordImport(_, _ string)                           {}
func (n *NoopMetrics) RecordAPICall(_, _, _ string)                       {}
func (n *NoopMetrics) RecordAPICallDuration(_, _ string, _ time.Duration) {}
func (n *NoopMetrics) RecordWebhookEvent(_, _, _ string)                  {}
func (n *NoopMetrics) RecordWebhookError(_, _ string)                     {}
