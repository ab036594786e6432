package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"vigil/internal/logger"
	"vigil/internal/metrics"
	"vigil/internal/models"
)

// ErrWriteFailed indicates the interaction log could not be written
var ErrWriteFailed = errors.New("failed to write interaction log")

// Log is the append-only interaction log backing threshold feedback.
// The file on disk is the source of truth: every operation re-reads it,
// so external edits (or a fresh deployment) are picked up without a
// restart. A missing or malformed file reads as empty; feedback history
// is advisory and must never block evaluation.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates an interaction log backed by the given file path. The
// file is created on first append.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the backing file path
func (l *Log) Path() string {
	return l.path
}

// Entries returns every recorded interaction in file order
func (l *Log) Entries() []models.InteractionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Len returns the number of recorded interactions
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.read())
}

// FindLatest returns the most recently appended entry matching pred,
// scanning newest first.
func (l *Log) FindLatest(pred func(models.InteractionEntry) bool) (models.InteractionEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.read()
	for i := len(entries) - 1; i >= 0; i-- {
		if pred(entries[i]) {
			return entries[i], true
		}
	}
	return models.InteractionEntry{}, false
}

// Append records a new interaction. The whole log is rewritten through
// a temp file so a crash mid-write cannot corrupt existing history.
// Unlike reads, append failures are surfaced: losing a verdict silently
// would break threshold adaptation.
func (l *Log) Append(entry models.InteractionEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := append(l.read(), entry)
	if err := l.persist(entries); err != nil {
		return err
	}

	verdict := "none"
	if entry.UserFeedback != "" {
		verdict = string(entry.UserFeedback)
	}
	metrics.FeedbackEntriesTotal.WithLabelValues(verdict).Inc()

	log := logger.WithComponent("feedback")
	log.Debug().
		Str("verdict", verdict).
		Int("entries", len(entries)).
		Msg("interaction recorded")

	return nil
}

// read loads the log file. Caller must hold the mutex.
func (l *Log) read() []models.InteractionEntry {
	log := logger.WithComponent("feedback")
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().
				Err(err).
				Str("path", l.path).
				Msg("interaction log unreadable, treating as empty")
		}
		return nil
	}

	var entries []models.InteractionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().
			Err(err).
			Str("path", l.path).
			Msg("interaction log malformed, treating as empty")
		return nil
	}
	return entries
}

// persist writes the full entry list atomically. Caller must hold the mutex.
func (l *Log) persist(entries []models.InteractionEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	tempPath := l.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if err := os.Rename(tempPath, l.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	return nil
}
