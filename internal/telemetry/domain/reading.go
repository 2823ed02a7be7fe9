package telemetry

import (
	"context"
	"time"
)

// Reading is a single point measurement of a device metric. Readings are
// append-only; the composite identity is (time, device_id, metric_type).
type Reading struct {
	Time       time.Time
	DeviceID   string
	MetricType string
	Value      float64
}

// ReadingRepository loads stored device readings. Owner-scoped queries join
// through devices and sites so that foreign devices yield no rows.
type ReadingRepository interface {
	// LatestOwned returns up to n most recent readings for an owned
	// device+metric, newest first. Equal timestamps are ordered by value
	// descending so the result is deterministic.
	LatestOwned(ctx context.Context, userID, deviceID, metricType string, n int) ([]Reading, error)
	// Range returns readings in [start, end] ordered by time ascending,
	// capped at limit rows.
	Range(ctx context.Context, deviceID, metricType string, start, end time.Time, limit int) ([]Reading, error)
}
