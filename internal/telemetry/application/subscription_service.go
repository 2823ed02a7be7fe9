package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"asset-cloud/internal/observability/metrics"
	telemetry "asset-cloud/internal/telemetry/domain"
)

// DeviceResolver reports which of the requested devices belong to a user.
type DeviceResolver interface {
	ResolveOwnedDevices(ctx context.Context, userID string, deviceIDs []string) (map[string]struct{}, error)
}

// UnknownDevicesError names the requested device ids that do not exist or
// do not belong to the caller.
type UnknownDevicesError struct {
	DeviceIDs []string
}

func (e *UnknownDevicesError) Error() string {
	return fmt.Sprintf("telemetry: unknown device ids: %s", strings.Join(e.DeviceIDs, ", "))
}

// SubscriptionService enforces the one-subscription-per-pair invariant.
type SubscriptionService struct {
	subscriptions telemetry.SubscriptionRepository
	devices       DeviceResolver
}

// NewSubscriptionService constructs a subscription service.
func NewSubscriptionService(subscriptions telemetry.SubscriptionRepository, devices DeviceResolver) (*SubscriptionService, error) {
	if subscriptions == nil {
		return nil, errors.New("subscriptions: nil repo")
	}
	if devices == nil {
		return nil, errors.New("subscriptions: nil device resolver")
	}
	return &SubscriptionService{subscriptions: subscriptions, devices: devices}, nil
}

// CreateSubscriptions creates one subscription per (device, metric_type)
// pair that is not already subscribed. The batch is all-or-nothing over
// device validation: any unknown or foreign device rejects the request
// without writing a row. When every pair already exists the call reports
// ErrAlreadySubscribed. The pre-check is best effort; the storage unique
// constraint settles races, which surface as ErrAlreadySubscribed too.
func (s *SubscriptionService) CreateSubscriptions(ctx context.Context, userID string, deviceIDs, metricTypes []string) ([]telemetry.Subscription, error) {
	if userID == "" {
		return nil, errors.New("subscriptions: user id required")
	}
	deviceIDs = dedupe(deviceIDs)
	metricTypes = dedupe(normalizeMetricTypes(metricTypes))
	if len(deviceIDs) == 0 {
		return nil, errors.New("subscriptions: device_ids required")
	}
	if len(metricTypes) == 0 {
		return nil, errors.New("subscriptions: metric_types required")
	}

	owned, err := s.devices.ResolveOwnedDevices(ctx, userID, deviceIDs)
	if err != nil {
		metrics.IncSubscriptionCreate(metrics.ResultError)
		return nil, err
	}
	var missing []string
	for _, deviceID := range deviceIDs {
		if _, ok := owned[deviceID]; !ok {
			missing = append(missing, deviceID)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		metrics.IncSubscriptionCreate(metrics.ResultNotFound)
		return nil, &UnknownDevicesError{DeviceIDs: missing}
	}

	existing, err := s.subscriptions.FindPairs(ctx, deviceIDs, metricTypes)
	if err != nil {
		metrics.IncSubscriptionCreate(metrics.ResultError)
		return nil, err
	}
	existingPairs := make(map[telemetry.Pair]struct{}, len(existing))
	for _, sub := range existing {
		existingPairs[telemetry.Pair{DeviceID: sub.DeviceID, MetricType: strings.ToLower(sub.MetricType)}] = struct{}{}
	}

	now := time.Now().UTC()
	var toCreate []telemetry.Subscription
	for _, deviceID := range deviceIDs {
		for _, metricType := range metricTypes {
			if _, ok := existingPairs[telemetry.Pair{DeviceID: deviceID, MetricType: metricType}]; ok {
				continue
			}
			toCreate = append(toCreate, telemetry.Subscription{
				ID:         uuid.NewString(),
				DeviceID:   deviceID,
				MetricType: metricType,
				CreatedAt:  now,
			})
		}
	}
	if len(toCreate) == 0 {
		metrics.IncSubscriptionCreate(metrics.ResultConflict)
		return nil, telemetry.ErrAlreadySubscribed
	}

	if err := s.subscriptions.CreateBatch(ctx, toCreate); err != nil {
		if errors.Is(err, telemetry.ErrDuplicatePair) {
			// Lost a race against an identical concurrent request; same
			// external outcome as the pre-check conflict.
			metrics.IncSubscriptionCreate(metrics.ResultConflict)
			return nil, telemetry.ErrAlreadySubscribed
		}
		metrics.IncSubscriptionCreate(metrics.ResultError)
		return nil, err
	}

	metrics.IncSubscriptionCreate(metrics.ResultSuccess)
	metrics.AddSubscriptionsCreated(len(toCreate))
	return toCreate, nil
}

// GetSubscription loads a subscription only when its device traces back to
// a site owned by the caller.
func (s *SubscriptionService) GetSubscription(ctx context.Context, userID, subscriptionID string) (*telemetry.Subscription, error) {
	if userID == "" {
		return nil, errors.New("subscriptions: user id required")
	}
	if subscriptionID == "" {
		return nil, telemetry.ErrSubscriptionNotFound
	}
	sub, err := s.subscriptions.GetOwned(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, telemetry.ErrSubscriptionNotFound
	}
	return sub, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func normalizeMetricTypes(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		result = append(result, strings.ToLower(strings.TrimSpace(value)))
	}
	return result
}
