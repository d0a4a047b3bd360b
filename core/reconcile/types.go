package reconcile

import (
	"sort"
	"time"
)

// Chunk is what a ChunkFunc reports for one page.
type Chunk struct {
	// Cursor is the highest key loaded in this chunk. It must advance whenever
	// Loaded > 0, even if processing the chunk failed.
	Cursor uint

	// Loaded is the number of rows the chunk loaded.
	Loaded int
}

// Summary provides aggregate counts for one sweep.
type Summary struct {
	// Name identifies the sweep in logs and reports.
	Name string `json:"name"`

	// Chunks counts chunks that were attempted.
	Chunks int `json:"chunks"`

	// FailedChunks counts chunks whose processing returned an error.
	FailedChunks int `json:"failed_chunks"`

	// Rows is the number of rows loaded across all chunks.
	Rows int `json:"rows"`

	// Cancelled is set when the context ended before the backlog was drained.
	Cancelled bool `json:"cancelled"`

	// Duration is the wall time of the sweep.
	Duration time.Duration `json:"duration"`
}

// Merge adds other's counters into s.
func (s *Summary) Merge(other Summary) {
	s.Chunks += other.Chunks
	s.FailedChunks += other.FailedChunks
	s.Rows += other.Rows
	s.Cancelled = s.Cancelled || other.Cancelled
	s.Duration += other.Duration
}

// KeyReport is the outcome of ForEachKey.
type KeyReport struct {
	// Processed counts keys whose function returned nil.
	Processed int `json:"processed"`

	// Failed maps each failing key to its error.
	Failed map[string]error `json:"-"`

	// Skipped counts keys never dispatched because the context ended.
	Skipped int `json:"skipped"`
}

// FailedKeys returns the failing keys in ascending order.
func (r KeyReport) FailedKeys() []string {
	keys := make([]string, 0, len(r.Failed))
	for k := range r.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OK reports whether every key was processed without error.
func (r KeyReport) OK() bool {
	return len(r.Failed) == 0 && r.Skipped == 0
}
