package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	event := NewOrderEvent(
		EventTypeOrderCreated,
		"order-123",
		"buyer-1",
		"seller-1",
		"pending",
		map[string]interface{}{
			"quantity": 2,
		},
	)

	err := producer.PublishEvent(context.Background(), TopicOrderEvents, "order-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewOrderEvent(
		EventTypeOrderCreated,
		"order-123",
		"buyer-1",
		"seller-1",
		"pending",
		nil,
	)

	err := producer.PublishEvent(context.Background(), TopicOrderEvents, "order-123", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_CancelledContext(t *testing.T) {
	// Без ExpectSendMessage: отменённый контекст не должен доходить до брокера.
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	event := NewOrderEvent(EventTypeOrderCancelled, "order-123", "buyer-1", "seller-1", "cancelled", nil)
	if err := producer.PublishEvent(ctx, TopicOrderEvents, "order-123", event); err == nil {
		t.Fatal("expected error for cancelled context")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewProducerConfig(t *testing.T) {
	config := newProducerConfig(producerOptions{
		maxRetries:  defaultProducerRetries,
		compression: sarama.CompressionSnappy,
	})

	if config.Producer.RequiredAcks != sarama.WaitForAll {
		t.Errorf("expected WaitForAll acks, got %v", config.Producer.RequiredAcks)
	}
	if !config.Producer.Idempotent {
		t.Error("expected idempotent producer")
	}
	if config.Net.MaxOpenRequests != 1 {
		t.Errorf("expected 1 max open request, got %d", config.Net.MaxOpenRequests)
	}
	if config.Producer.Retry.Max != defaultProducerRetries {
		t.Errorf("expected %d retries, got %d", defaultProducerRetries, config.Producer.Retry.Max)
	}
	if !config.Producer.Return.Successes {
		t.Error("expected Return.Successes for sync producer")
	}
}

func TestProducerOptions(t *testing.T) {
	opts := producerOptions{
		maxRetries:  defaultProducerRetries,
		compression: sarama.CompressionSnappy,
	}
	logger := log.WithField("component", "custom-producer")

	for _, option := range []ProducerOption{
		WithProducerLogger(logger),
		WithProducerRetries(8),
		WithCompression(sarama.CompressionGZIP),
	} {
		option(&opts)
	}

	if opts.logger != logger {
		t.Error("expected custom logger applied")
	}
	if opts.maxRetries != 8 {
		t.Errorf("expected 8 retries, got %d", opts.maxRetries)
	}

	config := newProducerConfig(opts)
	if config.Producer.Compression != sarama.CompressionGZIP {
		t.Errorf("expected gzip compression, got %v", config.Producer.Compression)
	}
	if config.Producer.Retry.Max != 8 {
		t.Errorf("expected 8 retries in config, got %d", config.Producer.Retry.Max)
	}
}

func TestNewOrderEvent(t *testing.T) {
	event := NewOrderEvent(
		EventTypeOrderConfirmed,
		"order-123",
		"buyer-1",
		"seller-1",
		"confirmed",
		map[string]interface{}{"quantity": 3},
	)

	if event.EventType != EventTypeOrderConfirmed {
		t.Errorf("expected event type %s, got %s", EventTypeOrderConfirmed, event.EventType)
	}
	if event.OrderID != "order-123" {
		t.Errorf("expected order id order-123, got %s", event.OrderID)
	}
	if event.BuyerID != "buyer-1" || event.SellerID != "seller-1" {
		t.Error("parties not set correctly")
	}
	if event.Status != "confirmed" {
		t.Errorf("expected status confirmed, got %s", event.Status)
	}
	if event.Metadata["quantity"] != 3 {
		t.Error("metadata not set correctly")
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}
