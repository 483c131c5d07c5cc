// Package models contains domain types for the TMS datalogger reader.
package models

import "time"

// ColumnKind identifies how a raw field is parsed.
type ColumnKind string

const (
	// ColumnInteger is a plain base-10 integer field.
	ColumnInteger ColumnKind = "integer"
	// ColumnTimestamp is the vendor datetime field ("2021.01.19 12:00").
	ColumnTimestamp ColumnKind = "timestamp"
	// ColumnTemperature is a nullable float field. Decimal commas are
	// accepted and the vendor sentinel maps to null.
	ColumnTemperature ColumnKind = "temperature"
)

// Column is one entry of the vendor's fixed positional layout.
type Column struct {
	Name string
	Kind ColumnKind
}

// MeasurementRecord is a single parsed line from a logger data file.
// T1-T3 are nil when the logger reported the missing-sensor sentinel.
type MeasurementRecord struct {
	LoggerID       int64     `json:"loggerId" msgpack:"loggerId"`
	MeasurementID  int64     `json:"measurementId" msgpack:"measurementId"`
	Timestamp      time.Time `json:"timestamp" msgpack:"timestamp"`
	TZOffset       int       `json:"tzOffset" msgpack:"tzOffset"`
	T1             *float64  `json:"t1" msgpack:"t1"`
	T2             *float64  `json:"t2" msgpack:"t2"`
	T3             *float64  `json:"t3" msgpack:"t3"`
	SoilMoistCount int64     `json:"soilMoistCount" msgpack:"soilMoistCount"`
	Shake          int       `json:"shake" msgpack:"shake"`
	ErrFlag        int       `json:"errFlag" msgpack:"errFlag"`
	// ReadTime is the modification time of the source file.
	ReadTime time.Time `json:"readTime" msgpack:"readTime"`
}
