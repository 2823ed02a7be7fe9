package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	telemetry "asset-cloud/internal/telemetry/domain"
)

const (
	defaultReadingsTable = "device_metrics"
	defaultDevicesTable  = "devices"
	defaultSitesTable    = "sites"
)

// DBTX is the subset of database/sql used by repositories, satisfied by
// both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReadingRepository is a Postgres implementation for device readings.
type ReadingRepository struct {
	db    DBTX
	table string
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db DBTX, opts ...ReadingOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ReadingOption configures the repository.
type ReadingOption func(*ReadingRepository)

// WithReadingTable overrides the default table name.
func WithReadingTable(table string) ReadingOption {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// LatestOwned loads up to n most recent readings for an owned device and
// metric, newest first. Equal timestamps order by value descending so the
// result is deterministic.
func (r *ReadingRepository) LatestOwned(ctx context.Context, userID, deviceID, metricType string, n int) ([]telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if userID == "" || deviceID == "" || metricType == "" {
		return nil, errors.New("reading repo: empty id")
	}
	if n < 1 {
		n = 1
	}

	query := fmt.Sprintf(`
SELECT m.time, m.device_id, m.metric_type, m.value
FROM %s m
JOIN %s d ON d.id = m.device_id
JOIN %s s ON s.id = d.site_id
WHERE m.device_id = $1 AND LOWER(m.metric_type) = LOWER($2) AND s.user_id = $3
ORDER BY m.time DESC, m.value DESC
LIMIT $4`, r.table, defaultDevicesTable, defaultSitesTable)

	return r.queryReadings(ctx, query, deviceID, metricType, userID, n)
}

// Range loads readings inside [start, end] in time-ascending order, capped
// at limit rows.
func (r *ReadingRepository) Range(ctx context.Context, deviceID, metricType string, start, end time.Time, limit int) ([]telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if deviceID == "" || metricType == "" {
		return nil, errors.New("reading repo: empty id")
	}
	if limit < 1 {
		limit = 1
	}

	query := fmt.Sprintf(`
SELECT time, device_id, metric_type, value
FROM %s
WHERE device_id = $1 AND LOWER(metric_type) = LOWER($2) AND time >= $3 AND time <= $4
ORDER BY time ASC
LIMIT $5`, r.table)

	return r.queryReadings(ctx, query, deviceID, metricType, start.UTC(), end.UTC(), limit)
}

func (r *ReadingRepository) queryReadings(ctx context.Context, query string, args ...any) ([]telemetry.Reading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []telemetry.Reading
	for rows.Next() {
		var reading telemetry.Reading
		if err := rows.Scan(&reading.Time, &reading.DeviceID, &reading.MetricType, &reading.Value); err != nil {
			return nil, err
		}
		reading.Time = reading.Time.UTC()
		result = append(result, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
