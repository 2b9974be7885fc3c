package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewOrderMetrics(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newOrderMetricsWithRegisterer should not return nil")
	}
	if metrics.transitions == nil {
		t.Error("transitions counter vec should not be nil")
	}
	if metrics.operationDuration == nil {
		t.Error("operationDuration histogram vec should not be nil")
	}
	if metrics.outboxEnqueued == nil {
		t.Error("outboxEnqueued counter should not be nil")
	}
}

func TestNewOrderMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newOrderMetricsWithRegisterer(reg)
	second := newOrderMetricsWithRegisterer(reg)

	if first.transitions != second.transitions {
		t.Error("expected the same counter vec on repeated registration")
	}
	if first.outboxEnqueued != second.outboxEnqueued {
		t.Error("expected the same counter on repeated registration")
	}
}

func TestRecordTransition(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordTransition("confirm", "ok")
	metrics.RecordTransition("confirm", "ok")
	metrics.RecordTransition("confirm", "forbidden")

	counter, err := metrics.transitions.GetMetricWithLabelValues("confirm", "ok")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}

	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordOperationDuration(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOperationDuration("create", 100*time.Millisecond)
	metrics.RecordOperationDuration("create", 500*time.Millisecond)

	observer, err := metrics.operationDuration.GetMetricWithLabelValues("create")
	if err != nil {
		t.Fatalf("get histogram: %v", err)
	}

	metric := &dto.Metric{}
	if err := observer.(prometheus.Histogram).Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", metric.Histogram.GetSampleCount())
	}

	sum := metric.Histogram.GetSampleSum()
	if sum < 0.55 || sum > 0.65 {
		t.Errorf("expected sum around 0.6, got %f", sum)
	}
}

func TestRecordOutboxEnqueued(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOutboxEnqueued()
	metrics.RecordOutboxEnqueued()
	metrics.RecordOutboxEnqueued()

	metric := &dto.Metric{}
	if err := metrics.outboxEnqueued.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 3.0 {
		t.Errorf("expected counter value 3.0, got %f", metric.Counter.GetValue())
	}
}

func TestNilOrderMetricsIsSafe(t *testing.T) {
	var metrics *OrderMetrics

	metrics.RecordTransition("create", "ok")
	metrics.RecordOperationDuration("create", time.Millisecond)
	metrics.RecordOutboxEnqueued()
}
