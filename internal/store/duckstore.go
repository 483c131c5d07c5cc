// Package store materializes read results into a DuckDB table so the API
// can filter, paginate and aggregate without holding rows in memory.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/tms-reader/backend/internal/models"
)

// MeasurementStore holds one read session's records in a temporary DuckDB
// file. Records are batched and written through the native Appender.
type MeasurementStore struct {
	db        *sql.DB
	dbPath    string
	rowCount  int
	batchSize int
	batch     []models.MeasurementRecord
	loggers   map[int64]struct{}
	minTs     int64
	maxTs     int64
	lastErr   error
}

// NewMeasurementStore creates a DuckDB-backed store in the given temp
// directory, keyed by session ID.
func NewMeasurementStore(tempDir, sessionID string) (*MeasurementStore, error) {
	dbPath := filepath.Join(tempDir, fmt.Sprintf("read_%s.duckdb", sessionID))

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='512MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE measurements (
			logger_id       BIGINT NOT NULL,
			measurement_id  BIGINT NOT NULL,
			ts              BIGINT NOT NULL,
			tz_offset       INTEGER NOT NULL,
			t1              DOUBLE,
			t2              DOUBLE,
			t3              DOUBLE,
			soilmoist_count BIGINT NOT NULL,
			shake           INTEGER NOT NULL,
			err_flag        INTEGER NOT NULL,
			read_time       BIGINT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MeasurementStore{
		db:        db,
		dbPath:    dbPath,
		batchSize: 10000,
		batch:     make([]models.MeasurementRecord, 0, 10000),
		loggers:   make(map[int64]struct{}, 64),
	}, nil
}

// Append adds a record to the store. Records are batched for efficient
// insertion; call Finalize once all records are appended.
func (ms *MeasurementStore) Append(rec models.MeasurementRecord) {
	ms.batch = append(ms.batch, rec)
	ms.loggers[rec.LoggerID] = struct{}{}

	tsMs := rec.Timestamp.UnixMilli()
	if ms.rowCount == 0 || tsMs < ms.minTs {
		ms.minTs = tsMs
	}
	if ms.rowCount == 0 || tsMs > ms.maxTs {
		ms.maxTs = tsMs
	}

	ms.rowCount++

	if len(ms.batch) >= ms.batchSize {
		if err := ms.flushBatch(); err != nil {
			ms.lastErr = err
			fmt.Printf("[Store] flush error: %v\n", err)
		}
	}
}

// LastError returns the last error that occurred during batch flush.
func (ms *MeasurementStore) LastError() error {
	return ms.lastErr
}

// flushBatch writes the current batch through the native Appender API.
func (ms *MeasurementStore) flushBatch() error {
	if len(ms.batch) == 0 {
		return nil
	}

	conn, err := ms.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "measurements")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, rec := range ms.batch {
			err := appender.AppendRow(
				rec.LoggerID,
				rec.MeasurementID,
				rec.Timestamp.UnixMilli(),
				int32(rec.TZOffset),
				nullableFloat(rec.T1),
				nullableFloat(rec.T2),
				nullableFloat(rec.T3),
				rec.SoilMoistCount,
				int32(rec.Shake),
				int32(rec.ErrFlag),
				rec.ReadTime.UnixMilli(),
			)
			if err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}

		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	ms.batch = ms.batch[:0]
	return nil
}

func nullableFloat(v *float64) driver.Value {
	if v == nil {
		return nil
	}
	return *v
}

// Finalize flushes any remaining records and creates indexes. Indexes are
// created after all inserts; building them during inserts slows the read.
func (ms *MeasurementStore) Finalize() error {
	if err := ms.flushBatch(); err != nil {
		return err
	}

	if _, err := ms.db.Exec("CREATE INDEX idx_key ON measurements(logger_id, measurement_id)"); err != nil {
		return fmt.Errorf("idx_key creation failed: %w", err)
	}
	if _, err := ms.db.Exec("CREATE INDEX idx_ts ON measurements(ts)"); err != nil {
		fmt.Printf("[Store] Warning: idx_ts creation failed: %v\n", err)
	}

	return nil
}

// Len returns the total number of records.
func (ms *MeasurementStore) Len() int {
	return ms.rowCount
}

// Loggers returns the number of distinct loggers seen.
func (ms *MeasurementStore) Loggers() int {
	return len(ms.loggers)
}

// TimeRange returns the span of record timestamps, nil if empty.
func (ms *MeasurementStore) TimeRange() *models.LoggerSummary {
	if ms.rowCount == 0 {
		return nil
	}
	return &models.LoggerSummary{
		Records: ms.rowCount,
		Start:   time.UnixMilli(ms.minTs).UTC(),
		End:     time.UnixMilli(ms.maxTs).UTC(),
	}
}

// QueryParams defines filters for record queries.
type QueryParams struct {
	Logger *int64
	FromMs *int64 // inclusive, Unix ms
	ToMs   *int64 // inclusive, Unix ms
	Limit  int
	Offset int
}

func buildWhere(params QueryParams) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if params.Logger != nil {
		clauses = append(clauses, "logger_id = ?")
		args = append(args, *params.Logger)
	}
	if params.FromMs != nil {
		clauses = append(clauses, "ts >= ?")
		args = append(args, *params.FromMs)
	}
	if params.ToMs != nil {
		clauses = append(clauses, "ts <= ?")
		args = append(args, *params.ToMs)
	}

	return strings.Join(clauses, " AND "), args
}

// Query returns filtered, paginated records in (logger_id, measurement_id)
// order, plus the total row count for the filter.
func (ms *MeasurementStore) Query(ctx context.Context, params QueryParams) ([]models.MeasurementRecord, int, error) {
	where, args := buildWhere(params)

	countQuery := "SELECT COUNT(*) FROM measurements"
	if where != "" {
		countQuery += " WHERE " + where
	}

	var total int
	if err := ms.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}
	if total == 0 {
		return []models.MeasurementRecord{}, 0, nil
	}

	query := `
		SELECT logger_id, measurement_id, ts, tz_offset, t1, t2, t3,
		       soilmoist_count, shake, err_flag, read_time
		FROM measurements
	`
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" ORDER BY logger_id, measurement_id LIMIT %d OFFSET %d", params.Limit, params.Offset)

	rows, err := ms.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	records := make([]models.MeasurementRecord, 0, params.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration failed: %w", err)
	}

	return records, total, nil
}

// LoggerSummaries returns per-logger record counts and time ranges.
func (ms *MeasurementStore) LoggerSummaries(ctx context.Context) ([]models.LoggerSummary, error) {
	rows, err := ms.db.QueryContext(ctx, `
		SELECT logger_id, COUNT(*), MIN(ts), MAX(ts)
		FROM measurements
		GROUP BY logger_id
		ORDER BY logger_id
	`)
	if err != nil {
		return nil, fmt.Errorf("summary query failed: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.LoggerSummary, 0, len(ms.loggers))
	for rows.Next() {
		var s models.LoggerSummary
		var minTs, maxTs int64
		if err := rows.Scan(&s.LoggerID, &s.Records, &minTs, &maxTs); err != nil {
			return nil, fmt.Errorf("summary scan failed: %w", err)
		}
		s.Start = time.UnixMilli(minTs).UTC()
		s.End = time.UnixMilli(maxTs).UTC()
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summary iteration failed: %w", err)
	}

	return summaries, nil
}

func scanRecord(rows *sql.Rows) (models.MeasurementRecord, error) {
	var rec models.MeasurementRecord
	var ts, readTime int64
	var t1, t2, t3 sql.NullFloat64

	err := rows.Scan(&rec.LoggerID, &rec.MeasurementID, &ts, &rec.TZOffset,
		&t1, &t2, &t3, &rec.SoilMoistCount, &rec.Shake, &rec.ErrFlag, &readTime)
	if err != nil {
		return rec, fmt.Errorf("scan failed: %w", err)
	}

	rec.Timestamp = time.UnixMilli(ts).UTC()
	rec.ReadTime = time.UnixMilli(readTime).UTC()
	if t1.Valid {
		rec.T1 = &t1.Float64
	}
	if t2.Valid {
		rec.T2 = &t2.Float64
	}
	if t3.Valid {
		rec.T3 = &t3.Float64
	}

	return rec, nil
}

// Close closes the database and removes the backing file.
func (ms *MeasurementStore) Close() {
	if ms.db != nil {
		ms.db.Close()
	}
	if ms.dbPath != "" {
		os.Remove(ms.dbPath)
	}
}
