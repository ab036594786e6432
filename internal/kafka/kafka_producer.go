package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"vigil/internal/config"
	"vigil/internal/logger"
	"vigil/internal/metrics"
	"vigil/internal/models"
)

// Producer errors
var (
	ErrProducerClosed  = errors.New("producer is closed")
	ErrPublishTimeout  = errors.New("publish timeout")
	ErrSerializeFailed = errors.New("failed to serialize message")
)

// Producer publishes decision traces to Kafka with connection pooling,
// retry, and batching
type Producer struct {
	cfg     config.ProducerConfig
	topic   string
	writers []*kafka.Writer
	pool    chan *kafka.Writer
	closed  atomic.Bool

	// Metrics
	messagesSent   atomic.Uint64
	messagesFailed atomic.Uint64
	bytesWritten   atomic.Uint64
}

// compressionCodecs maps config names to kafka codecs. Unknown names
// fall back to no compression.
var compressionCodecs = map[string]compress.Compression{
	"gzip":   compress.Gzip,
	"snappy": compress.Snappy,
	"lz4":    compress.Lz4,
	"zstd":   compress.Zstd,
}

// NewProducer creates a new Kafka producer with the given configuration
func NewProducer(brokers []string, topic string, cfg config.ProducerConfig) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}

	if topic == "" {
		return nil, errors.New("topic is required")
	}

	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}

	p := &Producer{
		cfg:     cfg,
		topic:   topic,
		writers: make([]*kafka.Writer, cfg.PoolSize),
		pool:    make(chan *kafka.Writer, cfg.PoolSize),
	}

	for i := 0; i < cfg.PoolSize; i++ {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // Partition by key
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout.Std(),
			WriteTimeout: cfg.WriteTimeout.Std(),
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  compressionCodecs[cfg.Compression],
			MaxAttempts:  cfg.MaxRetries + 1,
			Async:        false, // Sync for reliability
		}
		p.writers[i] = writer
		p.pool <- writer
	}

	return p, nil
}

// message builds the Kafka message for a trace. Keyed by component so
// each component's traces stay ordered within a partition.
func message(trace *models.DecisionTrace) (kafka.Message, error) {
	data, err := json.Marshal(trace)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("%w: %v", ErrSerializeFailed, err)
	}

	return kafka.Message{
		Key:   []byte(trace.ComponentID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "component_id", Value: []byte(trace.ComponentID)},
			{Key: "trace_id", Value: []byte(trace.TraceID)},
			{Key: "decision", Value: []byte(trace.Decision)},
		},
		Time: trace.Timestamp,
	}, nil
}

// Publish sends a decision trace to Kafka
func (p *Producer) Publish(ctx context.Context, trace *models.DecisionTrace) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	msg, err := message(trace)
	if err != nil {
		p.messagesFailed.Add(1)
		return err
	}

	if err := p.write(ctx, msg); err != nil {
		p.messagesFailed.Add(1)
		return err
	}

	p.messagesSent.Add(1)
	p.bytesWritten.Add(uint64(len(msg.Value)))
	return nil
}

// PublishBatch sends multiple decision traces to Kafka in a single batch
func (p *Producer) PublishBatch(ctx context.Context, traces []*models.DecisionTrace) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	if len(traces) == 0 {
		return nil
	}

	log := logger.WithComponent("kafka_producer")
	start := time.Now()

	// Convert traces to messages
	messages := make([]kafka.Message, 0, len(traces))
	for _, trace := range traces {
		msg, err := message(trace)
		if err != nil {
			log.Error().
				Err(err).
				Str("trace_id", trace.TraceID).
				Str("component", trace.ComponentID).
				Msg("failed to serialize trace")
			p.messagesFailed.Add(1)
			metrics.KafkaPublishTotal.WithLabelValues("failed").Inc()
			continue
		}
		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		return nil
	}

	err := p.write(ctx, messages...)
	duration := time.Since(start)

	metrics.KafkaPublishDuration.Observe(duration.Seconds())

	if err != nil {
		log.Error().
			Err(err).
			Int("batch_size", len(messages)).
			Dur("duration", duration).
			Msg("failed to publish batch to kafka")
		p.messagesFailed.Add(uint64(len(messages)))
		metrics.KafkaPublishTotal.WithLabelValues("failed").Add(float64(len(messages)))
		return err
	}

	log.Debug().
		Int("batch_size", len(messages)).
		Dur("duration", duration).
		Msg("batch published to kafka")

	p.messagesSent.Add(uint64(len(messages)))
	metrics.KafkaPublishTotal.WithLabelValues("success").Add(float64(len(messages)))

	bytesTotal := uint64(0)
	for _, msg := range messages {
		bytesTotal += uint64(len(msg.Value))
	}
	p.bytesWritten.Add(bytesTotal)
	metrics.KafkaBytesWritten.Add(float64(bytesTotal))

	return nil
}

// write checks out a pooled writer and sends the messages, retrying
// with exponential backoff. Context cancellation is not retried.
func (p *Producer) write(ctx context.Context, msgs ...kafka.Message) error {
	var writer *kafka.Writer
	select {
	case writer = <-p.pool:
		defer func() { p.pool <- writer }()
	case <-ctx.Done():
		return ctx.Err()
	}

	log := logger.WithComponent("kafka_producer")
	backoff := p.cfg.RetryBackoff.Std()
	var lastErr error

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().
				Int("attempt", attempt).
				Int("messages", len(msgs)).
				Dur("backoff", backoff).
				Msg("retrying kafka publish")

			metrics.KafkaPublishRetries.Inc()

			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := writer.WriteMessages(ctx, msgs...)
		if err == nil {
			return nil
		}

		lastErr = err
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("messages", len(msgs)).
			Msg("kafka publish attempt failed")

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", p.cfg.MaxRetries+1, lastErr)
}

// Close closes all writers in the pool
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil // Already closed
	}

	var errs []error
	for _, writer := range p.writers {
		if err := writer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing writers: %v", errs)
	}
	return nil
}

// Stats returns producer statistics
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		MessagesSent:   p.messagesSent.Load(),
		MessagesFailed: p.messagesFailed.Load(),
		BytesWritten:   p.bytesWritten.Load(),
	}
}

// ProducerStats holds producer metrics
type ProducerStats struct {
	MessagesSent   uint64 `json:"messages_sent"`
	MessagesFailed uint64 `json:"messages_failed"`
	BytesWritten   uint64 `json:"bytes_written"`
}

// HealthCheck verifies the producer can connect to Kafka
func (p *Producer) HealthCheck(ctx context.Context) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	// Get a writer from pool
	var writer *kafka.Writer
	select {
	case writer = <-p.pool:
		defer func() { p.pool <- writer }()
	case <-ctx.Done():
		return ctx.Err()
	}

	// Try to get writer stats (this doesn't actually write)
	_ = writer.Stats()
	return nil
}
