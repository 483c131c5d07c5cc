package reader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tms-reader/backend/internal/models"
)

// parseLine splits a line on the format delimiter and parses each field per
// the column schema. A nil RowError means the record is valid.
func (r *DataReader) parseLine(lf models.LoggerFile, lineNum int, line string, readTime time.Time) (models.MeasurementRecord, *models.RowError) {
	fields := strings.Split(line, r.format.Delimiter)

	// Lolly terminates some lines with a trailing delimiter.
	if n := len(fields); n > len(r.format.Columns) && strings.TrimSpace(fields[n-1]) == "" {
		fields = fields[:n-1]
	}

	if len(fields) < len(r.format.Columns) {
		return models.MeasurementRecord{}, &models.RowError{
			File:    lf.Name,
			Line:    lineNum,
			Content: line,
			Reason:  fmt.Sprintf("expected %d fields, got %d", len(r.format.Columns), len(fields)),
		}
	}

	rec := models.MeasurementRecord{
		LoggerID: lf.LoggerID,
		ReadTime: readTime,
	}

	for i, col := range r.format.Columns {
		raw := strings.TrimSpace(fields[i])

		switch col.Kind {
		case models.ColumnInteger:
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return models.MeasurementRecord{}, rowError(lf, lineNum, line, col.Name, raw)
			}
			switch col.Name {
			case ColMeasurementID:
				rec.MeasurementID = v
			case ColTZOffset:
				rec.TZOffset = int(v)
			case ColSoilMoistCount:
				rec.SoilMoistCount = v
			case ColShake:
				rec.Shake = int(v)
			case ColErrFlag:
				rec.ErrFlag = int(v)
			}

		case models.ColumnTimestamp:
			ts, err := parseTimestamp(raw)
			if err != nil {
				return models.MeasurementRecord{}, rowError(lf, lineNum, line, col.Name, raw)
			}
			rec.Timestamp = ts

		case models.ColumnTemperature:
			v, err := r.parseTemperature(raw)
			if err != nil {
				return models.MeasurementRecord{}, rowError(lf, lineNum, line, col.Name, raw)
			}
			switch col.Name {
			case ColT1:
				rec.T1 = v
			case ColT2:
				rec.T2 = v
			case ColT3:
				rec.T3 = v
			}
		}
	}

	return rec, nil
}

// parseTemperature parses a temperature channel. Decimal commas are
// normalized, empty fields and the vendor sentinel yield nil.
func (r *DataReader) parseTemperature(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, err
	}
	if v == r.format.TemperatureSentinel {
		return nil, nil
	}
	return &v, nil
}

func rowError(lf models.LoggerFile, lineNum int, line, column, raw string) *models.RowError {
	return &models.RowError{
		File:    lf.Name,
		Line:    lineNum,
		Content: line,
		Reason:  fmt.Sprintf("invalid %s value %q", column, raw),
	}
}
