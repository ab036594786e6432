package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vigil/internal/adjuster"
	"vigil/internal/config"
	"vigil/internal/engine"
	"vigil/internal/feedback"
	"vigil/internal/handlers"
	"vigil/internal/kafka"
	"vigil/internal/logger"
	"vigil/internal/metrics"
	"vigil/internal/middleware"
	"vigil/internal/models"
	"vigil/internal/rules"
	"vigil/internal/state"
	"vigil/internal/storage"
	"vigil/internal/worker"
)

// Processor is the high-level coordinator: it owns the catalog, the
// evaluation engine, the feedback loop, and the serving surfaces.
type Processor struct {
	cfg *config.Config

	catalog     *rules.Catalog
	engine      *engine.Engine
	feedbackLog *feedback.Log
	auditTrail  *adjuster.Trail
	adjuster    *adjuster.Adjuster
	store       state.Store
	archive     *storage.FileArchive
	watcher     *rules.Watcher

	producer   *kafka.Producer
	consumer   *kafka.Consumer
	workerPool *worker.Pool
	httpServer *http.Server

	envelopeChan chan *models.Envelope
	wg           sync.WaitGroup
	consumerWG   sync.WaitGroup
}

// New constructs a Processor with given config.
func New(cfg *config.Config) *Processor {
	queueSize := cfg.Worker.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &Processor{
		cfg:          cfg,
		envelopeChan: make(chan *models.Envelope, queueSize),
	}
}

// Run starts background goroutines and blocks until context cancelled.
func (p *Processor) Run(ctx context.Context) error {
	log := logger.WithComponent("processor")
	log.Info().Msg("processor starting")

	// Open the flat-file stores and build the core
	if err := p.initCore(); err != nil {
		log.Error().Err(err).Msg("failed to initialize core")
		return err
	}
	defer p.archive.Close()

	// Watch the catalog file for external edits
	if p.cfg.Data.WatchCatalog {
		if err := p.initWatcher(); err != nil {
			// Hot reload is a convenience; the service runs without it
			log.Warn().Err(err).Msg("catalog watcher unavailable")
		} else {
			defer p.watcher.Stop()
		}
	}

	// Kafka pipeline is optional; the HTTP API works without it
	if p.cfg.Kafka.Enabled {
		if err := p.initProducer(); err != nil {
			log.Error().Err(err).Msg("failed to initialize producer")
			return fmt.Errorf("failed to initialize producer: %w", err)
		}
		if err := p.initConsumer(); err != nil {
			log.Error().Err(err).Msg("failed to initialize consumer")
			return fmt.Errorf("failed to initialize consumer: %w", err)
		}
	}

	// Initialize worker pool
	p.initWorkerPool()
	p.workerPool.Start()

	// Initialize HTTP server
	if err := p.initHTTPServer(); err != nil {
		log.Error().Err(err).Msg("failed to initialize HTTP server")
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	// Start consumer in background
	if p.consumer != nil {
		p.consumerWG.Add(1)
		go func() {
			defer p.consumerWG.Done()
			if err := p.consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("consumer error")
			}
		}()
	}

	// Start HTTP server in background
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Info().Str("addr", p.cfg.HTTP.Addr).Msg("starting HTTP server")
		if err := p.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Stats reporting goroutine
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.reportStats(ctx)
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	// Graceful shutdown
	return p.shutdown()
}

// initCore opens the flat-file stores and wires the evaluation core
func (p *Processor) initCore() error {
	log := logger.WithComponent("processor")

	catalog, err := rules.Open(p.cfg.Data.CatalogPath())
	if err != nil {
		return fmt.Errorf("open rule catalog: %w", err)
	}
	p.catalog = catalog

	archive, err := storage.OpenFileArchive(p.cfg.Data.ArchivePath())
	if err != nil {
		return fmt.Errorf("open trace archive: %w", err)
	}
	p.archive = archive

	p.engine = engine.New(catalog)
	p.feedbackLog = feedback.NewLog(p.cfg.Data.FeedbackPath())
	p.auditTrail = adjuster.NewTrail(p.cfg.Data.AuditPath())
	p.adjuster = adjuster.New(catalog, p.feedbackLog, p.auditTrail)
	p.store = state.NewMemoryStore()

	log.Info().
		Str("catalog", p.cfg.Data.CatalogPath()).
		Int("components", len(catalog.Components())).
		Int("rules", catalog.RuleCount()).
		Msg("core initialized")
	return nil
}

// initWatcher starts catalog hot reload
func (p *Processor) initWatcher() error {
	watcher, err := rules.NewWatcher(p.catalog, 0)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	p.watcher = watcher
	return nil
}

// initProducer initializes the Kafka producer
func (p *Processor) initProducer() error {
	log := logger.WithComponent("processor")
	producer, err := kafka.NewProducer(
		p.cfg.Kafka.Brokers,
		p.cfg.Kafka.TraceTopic,
		p.cfg.Kafka.Producer,
	)
	if err != nil {
		return err
	}

	p.producer = producer
	log.Info().
		Strs("brokers", p.cfg.Kafka.Brokers).
		Str("topic", p.cfg.Kafka.TraceTopic).
		Msg("kafka producer initialized")
	return nil
}

// initConsumer initializes the Kafka consumer
func (p *Processor) initConsumer() error {
	log := logger.WithComponent("processor")
	consumer, err := kafka.NewConsumer(
		p.cfg.Kafka.Brokers,
		p.cfg.Kafka.SnapshotTopic,
		p.cfg.Kafka.GroupID,
		p.cfg.Kafka.Consumer,
		p.envelopeChan,
	)
	if err != nil {
		return err
	}

	p.consumer = consumer
	log.Info().
		Str("topic", p.cfg.Kafka.SnapshotTopic).
		Str("group_id", p.cfg.Kafka.GroupID).
		Msg("kafka consumer initialized")
	return nil
}

// initWorkerPool initializes the worker pool
func (p *Processor) initWorkerPool() {
	log := logger.WithComponent("processor")

	wcfg := worker.Config{
		Evaluator:    p.engine,
		Archiver:     p.archive,
		Tracker:      p.store,
		EnvelopeChan: p.envelopeChan,
		Workers:      p.cfg.Worker.Workers,
		BatchSize:    p.cfg.Worker.BatchSize,
		BatchTimeout: p.cfg.Worker.BatchTimeout.Std(),
	}
	// Leave the interface nil unless a producer exists: a typed nil
	// would pass the pool's nil check
	if p.producer != nil {
		wcfg.Publisher = p.producer
	}

	p.workerPool = worker.NewPool(wcfg)
	log.Info().Int("workers", p.cfg.Worker.Workers).Msg("worker pool initialized")
}

// initHTTPServer initializes the HTTP server with handlers
func (p *Processor) initHTTPServer() error {
	mux := http.NewServeMux()

	wrap := func(h http.Handler) http.Handler {
		return middleware.Chain(h, middleware.Recovery, middleware.Logging)
	}

	mux.Handle("/evaluate", wrap(handlers.NewEvaluateHandler(handlers.EvaluateConfig{
		Evaluator:   p.engine,
		Archiver:    p.archive,
		Tracker:     p.store,
		MaxBodySize: p.cfg.HTTP.MaxBodySize,
	})))

	mux.Handle("/ingest", wrap(handlers.NewIngestHandler(handlers.IngestConfig{
		EnvelopeChan: p.envelopeChan,
		NodeID:       "", // Will use hostname
		MaxBodySize:  p.cfg.HTTP.MaxBodySize,
	})))

	mux.Handle("/feedback", wrap(handlers.NewFeedbackHandler(p.feedbackLog, p.cfg.HTTP.MaxBodySize)))
	mux.Handle("/adjust", wrap(handlers.NewAdjustHandler(p.adjuster)))
	mux.Handle("/rules", wrap(handlers.NewRulesHandler(p.catalog)))
	mux.Handle("/traces/latest", wrap(handlers.NewTracesHandler(p.store)))

	// Health check
	mux.HandleFunc("/health", p.healthHandler)

	// Stats endpoint
	mux.HandleFunc("/stats", p.statsHandler)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Initialize queue capacity metric
	metrics.WorkerQueueCapacity.Set(float64(cap(p.envelopeChan)))

	p.httpServer = &http.Server{
		Addr:         p.cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  p.cfg.HTTP.ReadTimeout.Std(),
		WriteTimeout: p.cfg.HTTP.WriteTimeout.Std(),
		IdleTimeout:  p.cfg.HTTP.IdleTimeout.Std(),
	}

	return nil
}

// shutdown performs graceful shutdown
func (p *Processor) shutdown() error {
	log := logger.WithComponent("processor")
	log.Info().Msg("initiating graceful shutdown")

	// 1. Stop accepting new HTTP requests
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("stopping HTTP server")
	if err := p.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the consumer so nothing else feeds the queue
	if p.consumer != nil {
		log.Info().Msg("closing kafka consumer")
		if err := p.consumer.Close(); err != nil {
			log.Error().Err(err).Msg("consumer close error")
		}
		p.consumerWG.Wait()
	}

	// 3. Close envelope channel to signal no more incoming snapshots
	log.Info().Msg("closing envelope channel")
	close(p.envelopeChan)

	// 4. Wait for workers to finish processing (with timeout)
	done := make(chan struct{})
	go func() {
		p.workerPool.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("workers stopped gracefully")
	case <-time.After(15 * time.Second):
		log.Warn().Msg("worker shutdown timeout - forcing exit")
	}

	// 5. Close producer
	if p.producer != nil {
		log.Info().Msg("closing kafka producer")
		if err := p.producer.Close(); err != nil {
			log.Error().Err(err).Msg("producer close error")
		}
	}

	// 6. Wait for all goroutines
	p.wg.Wait()

	log.Info().Msg("processor stopped gracefully")
	return nil
}

// reportStats periodically logs statistics
func (p *Processor) reportStats(ctx context.Context) {
	log := logger.WithComponent("processor")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			workerStats := p.workerPool.Stats()

			// Update metrics
			metrics.WorkerQueueSize.Set(float64(len(p.envelopeChan)))

			event := log.Info().
				Uint64("worker_processed", workerStats.Processed).
				Uint64("worker_failed", workerStats.Failed).
				Int("queue_size", len(p.envelopeChan)).
				Int("feedback_entries", p.feedbackLog.Len())

			if p.producer != nil {
				producerStats := p.producer.Stats()
				event = event.
					Uint64("producer_sent", producerStats.MessagesSent).
					Uint64("producer_failed", producerStats.MessagesFailed).
					Uint64("producer_bytes", producerStats.BytesWritten)
			}

			event.Msg("stats")
		}
	}
}

// healthHandler handles health check requests
func (p *Processor) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// Check Kafka connectivity when the pipeline is on
	if p.producer != nil {
		if err := p.producer.HealthCheck(ctx); err != nil {
			http.Error(w, fmt.Sprintf("unhealthy: %v", err), http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// statsHandler returns current statistics
func (p *Processor) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"worker": p.workerPool.Stats(),
		"channel": map[string]int{
			"buffered": len(p.envelopeChan),
			"capacity": cap(p.envelopeChan),
		},
		"catalog": map[string]interface{}{
			"components": p.catalog.Components(),
			"rules":      p.catalog.RuleCount(),
		},
		"feedback": map[string]int{
			"entries": p.feedbackLog.Len(),
		},
	}
	if p.producer != nil {
		stats["producer"] = p.producer.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}
