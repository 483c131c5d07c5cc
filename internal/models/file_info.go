package models

import "time"

// FileInfo represents metadata about a data file dropped into the dataset.
type FileInfo struct {
	Name     string    `json:"name"`
	LoggerID int64     `json:"loggerId"`
	Size     int64     `json:"size"`
	SavedAt  time.Time `json:"savedAt"`
}
