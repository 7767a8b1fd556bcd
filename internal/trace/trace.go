// Package trace appends one JSONL record per processed item to a log
// file. The trace is write-only from the pipeline's point of view; it
// exists for offline debugging.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hybridqa/internal/types"
)

// Record captures the decisions made while resolving one item.
type Record struct {
	RunID       string            `json:"run_id"`
	ItemID      string            `json:"item_id"`
	Question    string            `json:"question"`
	Route       types.Route       `json:"route"`
	Constraints types.Constraints `json:"constraints"`
	SQL         string            `json:"sql"`
	SQLSuccess  bool              `json:"sql_success"`
	Repairs     int               `json:"repairs"`
	NeedsRepair bool              `json:"needs_repair"`
	Timestamp   time.Time         `json:"ts"`
}

// Sink receives one record per item. Implementations must not fail an
// item over a trace problem; errors are reported but best-effort.
type Sink interface {
	Append(rec Record) error
}

// Writer appends records to a file, one JSON object per line. Each
// writer carries a run id so interleaved runs can be told apart.
type Writer struct {
	f      *os.File
	enc    *json.Encoder
	runID  string
	logger *zap.Logger
}

// NewWriter opens (or creates) the trace file for appending.
func NewWriter(path string, logger *zap.Logger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return &Writer{
		f:      f,
		enc:    json.NewEncoder(f),
		runID:  uuid.NewString(),
		logger: logger,
	}, nil
}

// RunID returns the id stamped on every record this writer emits.
func (w *Writer) RunID() string { return w.runID }

// Append writes one record.
func (w *Writer) Append(rec Record) error {
	rec.RunID = w.runID
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to append trace record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}

// Discard is a Sink that drops every record. Used when tracing is
// disabled.
type Discard struct{}

func (Discard) Append(Record) error { return nil }
