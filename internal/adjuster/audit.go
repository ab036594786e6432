package adjuster

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"vigil/internal/logger"
	"vigil/internal/models"
)

// Trail is the append-only audit file recording every applied threshold
// adjustment. Like the feedback log it is a single JSON array rewritten
// atomically on each append, and a missing or malformed file reads as
// empty.
type Trail struct {
	mu   sync.Mutex
	path string
}

// NewTrail creates an audit trail backed by the given file path
func NewTrail(path string) *Trail {
	return &Trail{path: path}
}

// Path returns the backing file path
func (t *Trail) Path() string {
	return t.path
}

// Records returns every audit record in file order
func (t *Trail) Records() []models.AdjustmentRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.read()
}

// Append adds records to the trail. Appending nothing is a no-op.
func (t *Trail) Append(records ...models.AdjustmentRecord) error {
	if len(records) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	all := append(t.read(), records...)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("write adjustment audit: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("write adjustment audit: %w", err)
	}

	tempPath := t.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("write adjustment audit: %w", err)
	}

	if err := os.Rename(tempPath, t.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("write adjustment audit: %w", err)
	}

	return nil
}

// read loads the audit file. Caller must hold the mutex.
func (t *Trail) read() []models.AdjustmentRecord {
	log := logger.WithComponent("adjuster")
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().
				Err(err).
				Str("path", t.path).
				Msg("audit trail unreadable, treating as empty")
		}
		return nil
	}

	var records []models.AdjustmentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn().
			Err(err).
			Str("path", t.path).
			Msg("audit trail malformed, treating as empty")
		return nil
	}
	return records
}
