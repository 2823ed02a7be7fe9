package application

import (
	"context"
	"errors"
	"math"
	"time"

	"asset-cloud/internal/observability/metrics"
	telemetry "asset-cloud/internal/telemetry/domain"
)

// SeriesPoint is one time-series sample.
type SeriesPoint struct {
	Time  time.Time
	Value float64
}

// TimeSeries is a bounded slice of a subscription's metric history.
type TimeSeries struct {
	SubscriptionID string
	DeviceID       string
	MetricType     string
	Start          time.Time
	End            time.Time
	Points         []SeriesPoint
}

// SubscriptionGetter loads an owner-scoped subscription.
type SubscriptionGetter interface {
	GetSubscription(ctx context.Context, userID, subscriptionID string) (*telemetry.Subscription, error)
}

// SeriesService serves bounded historical series for subscriptions.
type SeriesService struct {
	subscriptions SubscriptionGetter
	readings      telemetry.ReadingRepository
	maxPoints     int
}

// NewSeriesService constructs a series service.
func NewSeriesService(subscriptions SubscriptionGetter, readings telemetry.ReadingRepository, maxPoints int) (*SeriesService, error) {
	if subscriptions == nil {
		return nil, errors.New("series: nil subscription getter")
	}
	if readings == nil {
		return nil, errors.New("series: nil reading repo")
	}
	if maxPoints < 1 {
		return nil, errors.New("series: max points must be positive")
	}
	return &SeriesService{subscriptions: subscriptions, readings: readings, maxPoints: maxPoints}, nil
}

// Series returns stored readings for the subscription's device and metric
// inside [start, end], time ascending. The point count is capped at
// clamp(ceil(hours), 1, maxPoints); fewer stored readings than the cap is
// not an error.
func (s *SeriesService) Series(ctx context.Context, userID, subscriptionID string, start, end time.Time) (*TimeSeries, error) {
	if start.After(end) {
		return nil, telemetry.ErrInvalidRange
	}
	sub, err := s.subscriptions.GetSubscription(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}

	limit := s.pointLimit(start, end)
	started := time.Now()
	readings, err := s.readings.Range(ctx, sub.DeviceID, sub.MetricType, start, end, limit)
	if err != nil {
		metrics.ObserveSeriesQuery(metrics.ResultError, time.Since(started))
		return nil, err
	}
	metrics.ObserveSeriesQuery(metrics.ResultSuccess, time.Since(started))

	points := make([]SeriesPoint, 0, len(readings))
	for _, reading := range readings {
		points = append(points, SeriesPoint{Time: reading.Time, Value: reading.Value})
	}
	return &TimeSeries{
		SubscriptionID: sub.ID,
		DeviceID:       sub.DeviceID,
		MetricType:     sub.MetricType,
		Start:          start,
		End:            end,
		Points:         points,
	}, nil
}

func (s *SeriesService) pointLimit(start, end time.Time) int {
	hours := int(math.Ceil(end.Sub(start).Hours()))
	if hours < 1 {
		return 1
	}
	if hours > s.maxPoints {
		return s.maxPoints
	}
	return hours
}
