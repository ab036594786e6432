package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"vigil/internal/models"
)

// Archive is the durable output boundary for decision traces
type Archive interface {
	Append(trace *models.DecisionTrace) error
	Close() error
}

// FileArchive appends one JSON-encoded trace per line to a local file.
// Lines are self-contained, so downstream tooling can tail the file and
// a truncated final line after a crash loses at most one trace.
type FileArchive struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// OpenFileArchive opens (or creates) the archive file for appending
func OpenFileArchive(path string) (*FileArchive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("open trace archive: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace archive: %w", err)
	}

	return &FileArchive{
		file: file,
		buf:  bufio.NewWriter(file),
	}, nil
}

// Append writes one trace as a single line and flushes it
func (a *FileArchive) Append(trace *models.DecisionTrace) error {
	data, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("archive trace: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.buf.Write(data); err != nil {
		return fmt.Errorf("archive trace: %w", err)
	}
	if err := a.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("archive trace: %w", err)
	}
	if err := a.buf.Flush(); err != nil {
		return fmt.Errorf("archive trace: %w", err)
	}
	return nil
}

// Close flushes and closes the archive file
func (a *FileArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.buf.Flush(); err != nil {
		a.file.Close()
		return err
	}
	return a.file.Close()
}

// ReadArchive loads every trace from an archive file, skipping blank
// lines. Used by tooling and tests, not the serving path.
func ReadArchive(path string) ([]*models.DecisionTrace, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var traces []*models.DecisionTrace
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var trace models.DecisionTrace
		if err := json.Unmarshal(line, &trace); err != nil {
			return nil, fmt.Errorf("archive line corrupt: %w", err)
		}
		traces = append(traces, &trace)
	}
	return traces, scanner.Err()
}
