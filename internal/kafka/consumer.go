package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"vigil/internal/config"
	"vigil/internal/logger"
	"vigil/internal/metrics"
	"vigil/internal/models"
)

// ErrConsumerClosed is returned when starting a closed consumer
var ErrConsumerClosed = errors.New("consumer is closed")

// Consumer reads feature snapshots from the input topic and feeds the
// worker queue. Offsets are committed on read: a snapshot dropped past
// this point is lost, which is acceptable for a monitoring stream where
// the next reading arrives seconds later.
type Consumer struct {
	reader *kafka.Reader
	out    chan<- *models.Envelope
	nodeID string
	closed atomic.Bool
}

// NewConsumer creates a consumer-group reader for the snapshot topic
func NewConsumer(brokers []string, topic, groupID string, cfg config.ConsumerConfig, out chan<- *models.Envelope) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}

	if topic == "" {
		return nil, errors.New("topic is required")
	}

	if groupID == "" {
		return nil, errors.New("group id is required")
	}

	minBytes := cfg.MinBytes
	if minBytes <= 0 {
		minBytes = 1
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024 // 10MB
	}
	maxWait := cfg.MaxWait.Std()
	if maxWait <= 0 {
		maxWait = 500 * time.Millisecond
	}
	commitInterval := cfg.CommitInterval.Std()
	if commitInterval <= 0 {
		commitInterval = time.Second
	}

	nodeID, _ := os.Hostname()
	if nodeID == "" {
		nodeID = "unknown"
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       minBytes,
		MaxBytes:       maxBytes,
		MaxWait:        maxWait,
		CommitInterval: commitInterval,
	})

	return &Consumer{
		reader: reader,
		out:    out,
		nodeID: nodeID,
	}, nil
}

// Start consumes until ctx is canceled or the reader is closed. It
// blocks; run it in its own goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}

	log := logger.WithComponent("kafka_consumer")
	log.Info().
		Str("topic", c.reader.Config().Topic).
		Str("group_id", c.reader.Config().GroupID).
		Msg("consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				log.Info().Msg("consumer stopped")
				return nil
			}

			log.Error().Err(err).Msg("kafka read failed")
			metrics.KafkaConsumeTotal.WithLabelValues("error").Inc()

			// Back off so a broken broker connection doesn't spin
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		c.handle(log, msg)
	}
}

// handle decodes, validates, and enqueues one message
func (c *Consumer) handle(log zerolog.Logger, msg kafka.Message) {
	snapshot, err := models.DecodeSnapshot(msg.Value)
	if err != nil {
		log.Warn().
			Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("undecodable snapshot message")
		metrics.KafkaConsumeTotal.WithLabelValues("invalid").Inc()
		return
	}

	// Fall back to the broker timestamp when the payload carries none
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = msg.Time
		if snapshot.Timestamp.IsZero() {
			snapshot.Timestamp = time.Now().UTC()
		}
	}

	snapshot.Normalize()
	if err := snapshot.Validate(); err != nil {
		log.Warn().
			Err(err).
			Str("component", snapshot.Component).
			Int64("offset", msg.Offset).
			Msg("invalid snapshot message")
		metrics.KafkaConsumeTotal.WithLabelValues("invalid").Inc()
		return
	}

	envelope := models.NewEnvelope(snapshot, c.nodeID).
		WithBatch(fmt.Sprintf("%s-%d", c.reader.Config().Topic, msg.Partition), int(msg.Offset))

	// Non-blocking send: shedding load beats stalling the consumer group
	select {
	case c.out <- envelope:
		metrics.KafkaConsumeTotal.WithLabelValues("accepted").Inc()
	default:
		log.Warn().
			Str("component", snapshot.Component).
			Int64("offset", msg.Offset).
			Msg("worker queue full, dropping snapshot")
		metrics.KafkaConsumeTotal.WithLabelValues("dropped").Inc()
	}
}

// Close shuts the reader down, unblocking Start
func (c *Consumer) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}
	return c.reader.Close()
}
