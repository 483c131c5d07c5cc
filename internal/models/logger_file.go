package models

// LoggerFile is a discovered data file for one logger. Files are immutable
// once discovered; re-scanning the directory builds a fresh index.
type LoggerFile struct {
	LoggerID int64  `json:"loggerId"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}
