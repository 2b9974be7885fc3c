package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const defaultProducerRetries = 5

// Producer публикует события жизненного цикла заказов в Kafka через
// синхронный идемпотентный producer: подтверждение от всех in-sync
// реплик и не больше одного запроса в полёте.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

type producerOptions struct {
	logger      *log.Entry
	maxRetries  int
	compression sarama.CompressionCodec
}

// ProducerOption настраивает Producer.
type ProducerOption func(*producerOptions)

// WithProducerLogger задаёт logger producer'а.
func WithProducerLogger(logger *log.Entry) ProducerOption {
	return func(opts *producerOptions) {
		opts.logger = logger
	}
}

// WithProducerRetries задаёт число повторов отправки на стороне sarama.
func WithProducerRetries(maxRetries int) ProducerOption {
	return func(opts *producerOptions) {
		opts.maxRetries = maxRetries
	}
}

// WithCompression задаёт кодек сжатия сообщений.
func WithCompression(codec sarama.CompressionCodec) ProducerOption {
	return func(opts *producerOptions) {
		opts.compression = codec
	}
}

// NewProducer создаёт producer для списка брокеров.
func NewProducer(brokers []string, options ...ProducerOption) (*Producer, error) {
	opts := producerOptions{
		maxRetries:  defaultProducerRetries,
		compression: sarama.CompressionSnappy,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.logger == nil {
		opts.logger = log.WithField("component", "kafka-producer")
	}
	if opts.maxRetries <= 0 {
		opts.maxRetries = defaultProducerRetries
	}

	producer, err := sarama.NewSyncProducer(brokers, newProducerConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		logger:   opts.logger,
	}, nil
}

func newProducerConfig(opts producerOptions) *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = opts.maxRetries
	config.Producer.Return.Successes = true
	config.Producer.Compression = opts.compression
	// Идемпотентность требует не больше одного запроса в полёте.
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// PublishEvent сериализует событие и синхронно отправляет его в topic.
// Отменённый контекст прерывает публикацию до обращения к брокеру:
// sarama SyncProducer сам контекст не принимает.
func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish to %s aborted: %w", topic, err)
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(eventData),
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")

	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
