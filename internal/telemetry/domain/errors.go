package telemetry

import "errors"

var (
	// ErrSubscriptionNotFound covers absent subscriptions and subscriptions
	// whose device belongs to another user.
	ErrSubscriptionNotFound = errors.New("telemetry: subscription not found")
	// ErrAlreadySubscribed indicates every requested pair already exists.
	ErrAlreadySubscribed = errors.New("telemetry: subscription already exists")
	// ErrDuplicatePair is reported by storage on a uniqueness violation.
	ErrDuplicatePair = errors.New("telemetry: duplicate subscription pair")
	// ErrNoReading indicates no stored reading matched the query.
	ErrNoReading = errors.New("telemetry: no reading found")
	// ErrUnknownMetricType indicates a metric type outside the unit table.
	ErrUnknownMetricType = errors.New("telemetry: unknown metric type")
	// ErrInvalidRange indicates start_time after end_time.
	ErrInvalidRange = errors.New("telemetry: invalid time range")
)
