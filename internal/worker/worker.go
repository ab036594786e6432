package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vigil/internal/logger"
	"vigil/internal/metrics"
	"vigil/internal/models"
)

// Evaluator turns a feature snapshot into a decision trace
type Evaluator interface {
	Evaluate(snapshot *models.FeatureSnapshot) (*models.DecisionTrace, error)
}

// Publisher defines the interface for publishing decision traces
type Publisher interface {
	Publish(ctx context.Context, trace *models.DecisionTrace) error
	PublishBatch(ctx context.Context, traces []*models.DecisionTrace) error
}

// Archiver appends traces to the durable archive
type Archiver interface {
	Append(trace *models.DecisionTrace) error
}

// Tracker records the most recent trace per component
type Tracker interface {
	SetLatest(ctx context.Context, trace *models.DecisionTrace) error
}

// Pool manages a pool of workers that evaluate queued snapshots and
// publish the resulting decision traces
type Pool struct {
	evaluator    Evaluator
	publisher    Publisher
	archiver     Archiver
	tracker      Tracker
	envelopeChan chan *models.Envelope
	workers      int
	batchSize    int
	batchTimeout time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	// Metrics
	processed atomic.Uint64
	failed    atomic.Uint64
}

// Config holds worker pool configuration. Publisher, Archiver, and
// Tracker are optional; evaluation always runs.
type Config struct {
	Evaluator    Evaluator
	Publisher    Publisher
	Archiver     Archiver
	Tracker      Tracker
	EnvelopeChan chan *models.Envelope
	Workers      int
	BatchSize    int
	BatchTimeout time.Duration
}

// NewPool creates a new worker pool
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		evaluator:    cfg.Evaluator,
		publisher:    cfg.Publisher,
		archiver:     cfg.Archiver,
		tracker:      cfg.Tracker,
		envelopeChan: cfg.EnvelopeChan,
		workers:      cfg.Workers,
		batchSize:    cfg.BatchSize,
		batchTimeout: cfg.BatchTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins processing envelopes
func (p *Pool) Start() {
	log := logger.WithComponent("worker_pool")
	log.Info().
		Int("workers", p.workers).
		Int("batch_size", p.batchSize).
		Dur("batch_timeout", p.batchTimeout).
		Bool("publishing", p.publisher != nil).
		Msg("starting worker pool")

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully stops all workers
func (p *Pool) Stop() {
	log := logger.WithComponent("worker_pool")
	log.Info().Msg("stopping worker pool")
	p.cancel()
	p.wg.Wait()
	log.Info().Msg("worker pool stopped")
}

// worker evaluates envelopes from the channel and batches the traces
// for publishing
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log := logger.WithComponent("worker").With().Int("worker_id", id).Logger()

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			log.Error().
				Interface("panic", r).
				Bytes("stack", stack).
				Msg("worker panic recovered")
			metrics.PanicsRecovered.WithLabelValues("worker").Inc()
		}
	}()

	log.Info().Msg("worker started")
	defer log.Info().Msg("worker stopped")

	batch := make([]*models.DecisionTrace, 0, p.batchSize)
	timer := time.NewTimer(p.batchTimeout)
	defer timer.Stop()

	for {
		select {
		case <-p.ctx.Done():
			// Flush remaining batch before exiting
			if len(batch) > 0 {
				p.flushBatch(batch)
			}
			return

		case envelope, ok := <-p.envelopeChan:
			if !ok {
				// Channel closed, flush and exit
				if len(batch) > 0 {
					p.flushBatch(batch)
				}
				return
			}

			trace := p.evaluate(log, envelope)
			if trace == nil {
				continue
			}

			batch = append(batch, trace)

			// Flush when batch is full
			if len(batch) >= p.batchSize {
				p.flushBatch(batch)
				batch = batch[:0] // Reset batch
				timer.Reset(p.batchTimeout)
			}

		case <-timer.C:
			// Flush on timeout if we have any traces
			if len(batch) > 0 {
				p.flushBatch(batch)
				batch = batch[:0]
			}
			timer.Reset(p.batchTimeout)
		}
	}
}

// evaluate runs one snapshot through the engine and records the trace
// in the archive and the latest-trace store. Evaluation failures are
// data problems (unknown component, missing feature), not pipeline
// failures: log, count, move on.
func (p *Pool) evaluate(log zerolog.Logger, envelope *models.Envelope) *models.DecisionTrace {
	if !envelope.ReceivedAt.IsZero() {
		metrics.WorkerQueueWait.Observe(time.Since(envelope.ReceivedAt).Seconds())
	}

	trace, err := p.evaluator.Evaluate(envelope.Snapshot)
	if err != nil {
		log.Warn().
			Err(err).
			Str("component", envelope.Snapshot.Component).
			Str("batch_id", envelope.BatchID).
			Msg("snapshot evaluation failed")

		p.failed.Add(1)
		metrics.WorkerFailedTotal.Add(1)
		return nil
	}

	if p.archiver != nil {
		if err := p.archiver.Append(trace); err != nil {
			log.Error().
				Err(err).
				Str("trace_id", trace.TraceID).
				Msg("failed to archive trace")
		}
	}

	if p.tracker != nil {
		if err := p.tracker.SetLatest(p.ctx, trace); err != nil {
			log.Error().
				Err(err).
				Str("trace_id", trace.TraceID).
				Msg("failed to record latest trace")
		}
	}

	return trace
}

// flushBatch publishes a batch of traces
func (p *Pool) flushBatch(batch []*models.DecisionTrace) {
	if len(batch) == 0 {
		return
	}

	// No downstream topic configured: evaluation and archiving already
	// happened, the batch is complete.
	if p.publisher == nil {
		p.processed.Add(uint64(len(batch)))
		metrics.WorkerProcessedTotal.Add(float64(len(batch)))
		return
	}

	log := logger.WithComponent("worker")
	start := time.Now()

	// Create a timeout context for the publish operation
	ctx, cancel := context.WithTimeout(p.ctx, 10*time.Second)
	defer cancel()

	log.Debug().Int("batch_size", len(batch)).Msg("publishing trace batch to kafka")

	err := p.publisher.PublishBatch(ctx, batch)
	duration := time.Since(start)

	metrics.WorkerBatchPublishDuration.Observe(duration.Seconds())

	if err != nil {
		log.Error().
			Err(err).
			Int("batch_size", len(batch)).
			Dur("duration", duration).
			Msg("failed to publish batch")

		p.failed.Add(uint64(len(batch)))
		metrics.WorkerFailedTotal.Add(float64(len(batch)))

		// Fallback: try publishing individually
		p.publishIndividually(batch)
	} else {
		log.Info().
			Int("batch_size", len(batch)).
			Dur("duration", duration).
			Msg("batch published successfully")

		p.processed.Add(uint64(len(batch)))
		metrics.WorkerProcessedTotal.Add(float64(len(batch)))
	}
}

// publishIndividually tries to publish each trace separately (fallback)
func (p *Pool) publishIndividually(batch []*models.DecisionTrace) {
	log := logger.WithComponent("worker")
	log.Warn().Int("count", len(batch)).Msg("attempting individual publish for failed batch")

	for _, trace := range batch {
		ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
		err := p.publisher.Publish(ctx, trace)
		cancel()

		if err != nil {
			log.Error().
				Err(err).
				Str("trace_id", trace.TraceID).
				Str("component", trace.ComponentID).
				Msg("failed to publish trace individually")
		} else {
			log.Debug().
				Str("trace_id", trace.TraceID).
				Msg("trace published individually")

			// Don't count twice - subtract from failed, add to processed
			p.failed.Add(^uint64(0)) // Subtract 1
			p.processed.Add(1)
		}
	}
}

// Stats returns worker pool statistics
func (p *Pool) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Stats holds worker pool metrics
type Stats struct {
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
}
