// Package reader discovers and parses TOMST TMS-4 data files exported by
// the Lolly software.
package reader

import (
	"fmt"
	"regexp"

	"github.com/tms-reader/backend/internal/models"
)

// Format describes the vendor file layout. It is immutable configuration;
// a single Format value is shared by every reader built from it.
type Format struct {
	// FilePattern matches data file names; capture group 1 is the logger ID.
	FilePattern *regexp.Regexp
	// Delimiter separates fields within a line.
	Delimiter string
	// HeaderLines is the number of leading lines to skip per file.
	HeaderLines int
	// EmptyFileMarker is the literal first line Lolly writes for a logger
	// that produced no data. Such files contribute zero rows.
	EmptyFileMarker string
	// TemperatureSentinel is the value a temperature channel reports when
	// the sensor is unavailable. Parsed as null, never as a number.
	TemperatureSentinel float64
	// Columns is the fixed positional layout, consulted during parsing.
	Columns []models.Column
}

const (
	defaultFilePattern     = `^data_(\d+)_\d{4}_\d{2}_\d{2}_\d+\.csv$`
	defaultDelimiter       = ";"
	defaultEmptyFileMarker = "File is empty"
	// TMS-4 service value for "sensor not present".
	defaultTemperatureSentinel = -200.0
)

// Field names of the vendor layout.
const (
	ColMeasurementID  = "measurement_id"
	ColTimestamp      = "timestamp"
	ColTZOffset       = "time_zone"
	ColT1             = "T1"
	ColT2             = "T2"
	ColT3             = "T3"
	ColSoilMoistCount = "soilmoist_count"
	ColShake          = "shake"
	ColErrFlag        = "errFlag"
)

// DefaultFormat returns the TMS-4 layout as documented by the vendor:
// https://tomst.com/web/en/systems/tms/software/
func DefaultFormat() Format {
	return Format{
		FilePattern:         regexp.MustCompile(defaultFilePattern),
		Delimiter:           defaultDelimiter,
		HeaderLines:         0,
		EmptyFileMarker:     defaultEmptyFileMarker,
		TemperatureSentinel: defaultTemperatureSentinel,
		Columns: []models.Column{
			{Name: ColMeasurementID, Kind: models.ColumnInteger},
			{Name: ColTimestamp, Kind: models.ColumnTimestamp},
			{Name: ColTZOffset, Kind: models.ColumnInteger},
			{Name: ColT1, Kind: models.ColumnTemperature},
			{Name: ColT2, Kind: models.ColumnTemperature},
			{Name: ColT3, Kind: models.ColumnTemperature},
			{Name: ColSoilMoistCount, Kind: models.ColumnInteger},
			{Name: ColShake, Kind: models.ColumnInteger},
			{Name: ColErrFlag, Kind: models.ColumnInteger},
		},
	}
}

// FormatFromConfig builds a Format from configuration values, falling back
// to the vendor defaults for zero values. The column layout is fixed.
func FormatFromConfig(pattern, delimiter string, headerLines int, sentinel float64, emptyMarker string) (Format, error) {
	f := DefaultFormat()

	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Format{}, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
		}
		if re.NumSubexp() < 1 {
			return Format{}, fmt.Errorf("file pattern %q has no logger-id capture group", pattern)
		}
		f.FilePattern = re
	}
	if delimiter != "" {
		f.Delimiter = delimiter
	}
	if headerLines > 0 {
		f.HeaderLines = headerLines
	}
	if sentinel != 0 {
		f.TemperatureSentinel = sentinel
	}
	if emptyMarker != "" {
		f.EmptyFileMarker = emptyMarker
	}

	return f, nil
}
