package models

import (
	"time"
)

// Envelope carries a FeatureSnapshot through the ingest queue along with
// where and when it entered the system.
type Envelope struct {
	Snapshot *FeatureSnapshot `json:"snapshot"`

	ReceivedAt time.Time `json:"received_at"`
	IngestNode string    `json:"ingest_node"`
	BatchID    string    `json:"batch_id,omitempty"`
	BatchIndex int       `json:"batch_index,omitempty"`
}

// NewEnvelope stamps a snapshot with its entry point and arrival time
func NewEnvelope(snapshot *FeatureSnapshot, ingestNode string) *Envelope {
	return &Envelope{
		Snapshot:   snapshot,
		ReceivedAt: time.Now().UTC(),
		IngestNode: ingestNode,
	}
}

// WithBatch sets batch metadata on the envelope
func (e *Envelope) WithBatch(batchID string, index int) *Envelope {
	e.BatchID = batchID
	e.BatchIndex = index
	return e
}
