package telemetry

import (
	"context"
	"errors"
	"time"
)

// Subscription is a durable record that a (device, metric_type) pair is
// being followed. At most one subscription may exist per pair; the storage
// layer enforces this with a unique constraint.
type Subscription struct {
	ID         string
	DeviceID   string
	MetricType string
	CreatedAt  time.Time
}

// Validate checks subscription invariants.
func (s Subscription) Validate() error {
	if s.ID == "" {
		return errors.New("subscription: empty id")
	}
	if s.DeviceID == "" {
		return errors.New("subscription: empty device id")
	}
	if s.MetricType == "" {
		return errors.New("subscription: empty metric type")
	}
	return nil
}

// Pair identifies a (device, metric_type) combination.
type Pair struct {
	DeviceID   string
	MetricType string
}

// SubscriptionRepository persists subscriptions.
type SubscriptionRepository interface {
	// FindPairs returns existing subscriptions whose pair intersects the
	// cartesian product of the given device ids and metric types.
	FindPairs(ctx context.Context, deviceIDs, metricTypes []string) ([]Subscription, error)
	// CreateBatch inserts all subscriptions in one transaction. A unique
	// violation rolls the whole batch back and is reported as
	// ErrDuplicatePair.
	CreateBatch(ctx context.Context, subscriptions []Subscription) error
	// GetOwned loads a subscription whose device traces back to a site
	// owned by the user, or nil.
	GetOwned(ctx context.Context, userID, subscriptionID string) (*Subscription, error)
}
