package models

// ReadStatus represents the status of a dataset read session.
type ReadStatus string

const (
	ReadStatusPending  ReadStatus = "pending"
	ReadStatusReading  ReadStatus = "reading"
	ReadStatusComplete ReadStatus = "complete"
	ReadStatusError    ReadStatus = "error"
)

// ReadSession represents one read of the dataset directory.
type ReadSession struct {
	ID               string     `json:"id"`
	Status           ReadStatus `json:"status"`
	Progress         float64    `json:"progress"` // 0-100
	FileCount        int        `json:"fileCount,omitempty"`
	RecordCount      int        `json:"recordCount,omitempty"`
	SkippedCount     int        `json:"skippedCount,omitempty"`
	ProcessingTimeMs int64      `json:"processingTimeMs,omitempty"`
	StartTime        int64      `json:"startTime,omitempty"` // Unix ms of earliest record
	EndTime          int64      `json:"endTime,omitempty"`   // Unix ms of latest record
	Errors           []RowError `json:"errors,omitempty"`
	Notes            []string   `json:"notes,omitempty"`
}

// NewReadSession creates a new ReadSession in pending status.
func NewReadSession(id string) *ReadSession {
	return &ReadSession{
		ID:       id,
		Status:   ReadStatusPending,
		Progress: 0,
		Errors:   make([]RowError, 0),
	}
}
