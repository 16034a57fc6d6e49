package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSupplyMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSupplyMetrics(reg)

	metrics.ObserveReservation("approve", 120*time.Millisecond)
	metrics.IncReservationOutcome("approve", "ok")
	metrics.IncReservationOutcome("approve", "insufficient_stock")
	metrics.IncStockMovement("receive")
	metrics.IncOutboxPublished()
	metrics.IncOutboxFailure()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "reservation_outcomes_total", map[string]string{"operation": "approve", "result": "ok"}); err != nil {
		t.Fatalf("fetch outcome: %v", err)
	} else if got != 1 {
		t.Fatalf("expected ok=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "stock_movements_total", map[string]string{"type": "receive"}); err != nil {
		t.Fatalf("fetch movement: %v", err)
	} else if got != 1 {
		t.Fatalf("expected receive=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "reservation_duration_seconds", map[string]string{"operation": "approve"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_events_published_total", nil); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 1 {
		t.Fatalf("expected published=1, got %f", got)
	}
}

func TestSupplyMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewSupplyMetrics(nil)
	metrics.ObserveReservation("approve", time.Second)
	metrics.IncReservationOutcome("approve", "ok")
	metrics.IncStockMovement("issue")
	metrics.IncOutboxPublished()
	metrics.IncOutboxFailure()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, labels map[string]string) bool {
	for name, value := range labels {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == name && pair.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
