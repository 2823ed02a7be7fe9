package application

import (
	"context"
	"errors"
	"time"

	"asset-cloud/internal/auth"
	"asset-cloud/internal/observability/metrics"
	telemetry "asset-cloud/internal/telemetry/domain"
)

// LatestReading is the newest stored value of a device metric, annotated
// with its physical unit.
type LatestReading struct {
	Time       time.Time
	DeviceID   string
	MetricType string
	Value      float64
	Unit       string
}

// QueryService answers latest-metric queries, scoped to device ownership.
type QueryService struct {
	readings telemetry.ReadingRepository
}

// NewQueryService constructs a query service.
func NewQueryService(readings telemetry.ReadingRepository) (*QueryService, error) {
	if readings == nil {
		return nil, errors.New("metric query: nil repo")
	}
	return &QueryService{readings: readings}, nil
}

// Latest returns the most recent reading for an owned device and metric.
// The metric type must be in the unit table; a device that is absent or
// foreign-owned yields ErrNoReading, same as a device with no data.
func (s *QueryService) Latest(ctx context.Context, userID, deviceID, metricType string) (*LatestReading, error) {
	if !auth.LevelAtLeast(auth.LevelFromContext(ctx), auth.LevelTechnical) {
		return nil, auth.ErrForbidden
	}
	if userID == "" {
		return nil, errors.New("metric query: user id required")
	}
	if deviceID == "" {
		return nil, telemetry.ErrNoReading
	}
	unit, ok := telemetry.UnitFor(metricType)
	if !ok {
		return nil, telemetry.ErrUnknownMetricType
	}

	started := time.Now()
	readings, err := s.readings.LatestOwned(ctx, userID, deviceID, metricType, 1)
	if err != nil {
		metrics.ObserveLatestQuery(metrics.ResultError, time.Since(started))
		return nil, err
	}
	if len(readings) == 0 {
		metrics.ObserveLatestQuery(metrics.ResultNotFound, time.Since(started))
		return nil, telemetry.ErrNoReading
	}
	metrics.ObserveLatestQuery(metrics.ResultSuccess, time.Since(started))

	reading := readings[0]
	return &LatestReading{
		Time:       reading.Time,
		DeviceID:   reading.DeviceID,
		MetricType: reading.MetricType,
		Value:      reading.Value,
		Unit:       unit,
	}, nil
}
