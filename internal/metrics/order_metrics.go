package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики операций с заказами.
type OrderMetrics struct {
	// Счётчики переходов жизненного цикла по операции и результату
	transitions *prometheus.CounterVec

	// Гистограмма длительности операций сервиса
	operationDuration *prometheus.HistogramVec

	// Счётчик событий, поставленных в outbox
	outboxEnqueued prometheus.Counter
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_order_transitions_total",
			Help: "Total number of order lifecycle transitions grouped by operation and result",
		}, []string{"op", "result"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "marketplace_order_operation_duration_seconds",
			Help:    "Duration of order service operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
		outboxEnqueued: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_order_outbox_enqueued_total",
			Help: "Total number of order events enqueued into transactional outbox",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordTransition фиксирует исход операции жизненного цикла.
func (m *OrderMetrics) RecordTransition(op, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(op, result).Inc()
}

// RecordOperationDuration записывает длительность операции сервиса.
func (m *OrderMetrics) RecordOperationDuration(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordOutboxEnqueued увеличивает счётчик поставленных в outbox событий.
func (m *OrderMetrics) RecordOutboxEnqueued() {
	if m == nil {
		return
	}
	m.outboxEnqueued.Inc()
}
