package rules

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"vigil/internal/logger"
	"vigil/internal/metrics"
)

// Watcher reloads the catalog when its backing file changes on disk.
// Events are debounced so editors that write in several bursts trigger
// a single reload; the catalog's own persists are skipped via the
// content hash check in Reload.
type Watcher struct {
	catalog  *Catalog
	fsw      *fsnotify.Watcher
	target   string
	debounce time.Duration

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for the catalog's backing file. The
// containing directory is watched, not the file itself, so atomic
// rename-style rewrites keep being observed.
func NewWatcher(catalog *Catalog, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog watcher: %w", err)
	}

	return &Watcher{
		catalog:  catalog,
		fsw:      fsw,
		target:   filepath.Clean(catalog.Path()),
		debounce: debounce,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching for catalog file changes
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.target)
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	log := logger.WithComponent("catalog_watcher")
	log.Info().Str("path", w.target).Dur("debounce", w.debounce).Msg("watching catalog file")

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop stops the watcher and waits for the event loop to exit
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	log := logger.WithComponent("catalog_watcher")

	timer := time.NewTimer(w.debounce)
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.reload(log)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("catalog watcher error")
		}
	}
}

func (w *Watcher) reload(log zerolog.Logger) {
	applied, err := w.catalog.Reload()
	switch {
	case err != nil:
		log.Error().Err(err).Msg("catalog reload failed, keeping previous rules")
		metrics.CatalogReloadsTotal.WithLabelValues("failed").Inc()
	case applied:
		log.Info().Int("rules", w.catalog.RuleCount()).Msg("catalog reloaded from file")
		metrics.CatalogReloadsTotal.WithLabelValues("applied").Inc()
	default:
		log.Debug().Msg("catalog file unchanged, reload skipped")
		metrics.CatalogReloadsTotal.WithLabelValues("skipped").Inc()
	}
}
