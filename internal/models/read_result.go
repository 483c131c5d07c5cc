package models

import "time"

// RowError describes a line that could not be parsed and was skipped.
type RowError struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// ReadResult is the concatenated table of all parsed files, in discovery
// order then line order. Rows are keyed by (loggerId, measurementId); the
// reader does not enforce or repair key uniqueness.
type ReadResult struct {
	Records []MeasurementRecord `json:"records"`
	// Skipped holds one entry per malformed line that was dropped.
	Skipped []RowError `json:"skipped,omitempty"`
	// Notes carries non-fatal per-file diagnostics (e.g. empty-marker files).
	Notes     []string `json:"notes,omitempty"`
	FilesRead int      `json:"filesRead"`
}

// NewReadResult creates an empty ReadResult.
func NewReadResult() *ReadResult {
	return &ReadResult{
		Records: make([]MeasurementRecord, 0),
		Skipped: make([]RowError, 0),
	}
}

// LoggerSummary aggregates one logger's rows in a read result.
type LoggerSummary struct {
	LoggerID int64     `json:"loggerId"`
	Records  int       `json:"records"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}
