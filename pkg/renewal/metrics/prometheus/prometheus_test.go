package prommetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

var _ renewal.Metrics = (*Metrics)(nil)

// findMetric returns the first sample of a metric family whose labels include labels.
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabels(m, labels) {
				return m
			}
		}
	}
	return nil
}

func hasLabels(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

func TestPrometheusMetrics_RecordViewBuild(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordViewBuild("month", 12, 2*time.Millisecond)
	metrics.RecordViewBuild("month", 3, time.Millisecond)

	m := findMetric(t, reg, "test_view_build_duration_seconds", map[string]string{"view": "month"})
	if m == nil {
		t.Fatal("view build histogram not found")
	}
	if got := m.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("sample count: got %d, want 2", got)
	}

	m = findMetric(t, reg, "test_view_subscriptions", map[string]string{"view": "month"})
	if m == nil {
		t.Fatal("view subscriptions histogram not found")
	}
	if got := m.GetHistogram().GetSampleSum(); got != 15 {
		t.Errorf("sample sum: got %v, want 15", got)
	}
}

func TestPrometheusMetrics_Cache(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordCacheHit("subscriptions")
	metrics.RecordCacheHit("subscriptions")
	metrics.RecordCacheMiss("subscriptions")

	hits := findMetric(t, reg, "test_cache_hits_total", map[string]string{"type": "subscriptions"})
	if hits == nil || hits.GetCounter().GetValue() != 2 {
		t.Errorf("cache hits: got %v, want 2", hits)
	}
	misses := findMetric(t, reg, "test_cache_misses_total", map[string]string{"type": "subscriptions"})
	if misses == nil || misses.GetCounter().GetValue() != 1 {
		t.Errorf("cache misses: got %v, want 1", misses)
	}
}

func TestPrometheusMetrics_RecordStorageOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordStorageOperation("list", 10*time.Millisecond, nil)
	metrics.RecordStorageOperation("list", 20*time.Millisecond, errors.New("connection refused"))

	duration := findMetric(t, reg, "test_storage_operation_duration_seconds", map[string]string{"operation": "list"})
	if duration == nil || duration.GetHistogram().GetSampleCount() != 2 {
		t.Errorf("storage duration samples: got %v, want 2", duration)
	}
	errs := findMetric(t, reg, "test_storage_operation_errors_total", map[string]string{"operation": "list"})
	if errs == nil || errs.GetCounter().GetValue() != 1 {
		t.Errorf("storage errors: got %v, want 1", errs)
	}
}

func TestPrometheusMetrics_RecordCircuitBreakerStateChange(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordCircuitBreakerStateChange(string(renewal.StateOpen))

	m := findMetric(t, reg, "test_circuit_breaker_state_changes_total", map[string]string{"state": "open"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("state changes: got %v, want 1", m)
	}
}

func TestPrometheusMetrics_RecordFallbackHit(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordFallbackHit("list")

	m := findMetric(t, reg, "test_fallback_hits_total", map[string]string{"strategy": "list"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("fallback hits: got %v, want 1", m)
	}
}
