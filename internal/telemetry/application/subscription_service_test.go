package application

import (
	"context"
	"errors"
	"testing"
	"time"

	telemetry "asset-cloud/internal/telemetry/domain"
)

type stubSubscriptionRepo struct {
	existing    []telemetry.Subscription
	created     []telemetry.Subscription
	batchErr    error
	failOnWrite bool
}

func (s *stubSubscriptionRepo) FindPairs(_ context.Context, deviceIDs, metricTypes []string) ([]telemetry.Subscription, error) {
	wantDevice := make(map[string]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		wantDevice[id] = struct{}{}
	}
	wantMetric := make(map[string]struct{}, len(metricTypes))
	for _, m := range metricTypes {
		wantMetric[m] = struct{}{}
	}
	var out []telemetry.Subscription
	for _, sub := range s.existing {
		if _, ok := wantDevice[sub.DeviceID]; !ok {
			continue
		}
		if _, ok := wantMetric[sub.MetricType]; !ok {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *stubSubscriptionRepo) CreateBatch(_ context.Context, subscriptions []telemetry.Subscription) error {
	if s.failOnWrite {
		return s.batchErr
	}
	s.created = append(s.created, subscriptions...)
	return nil
}

func (s *stubSubscriptionRepo) GetOwned(_ context.Context, userID, subscriptionID string) (*telemetry.Subscription, error) {
	for _, sub := range s.existing {
		if sub.ID == subscriptionID {
			copied := sub
			return &copied, nil
		}
	}
	return nil, nil
}

type stubResolver struct {
	owned map[string]struct{}
}

func (s stubResolver) ResolveOwnedDevices(_ context.Context, _ string, deviceIDs []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, id := range deviceIDs {
		if _, ok := s.owned[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func ownedDevices(ids ...string) stubResolver {
	owned := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		owned[id] = struct{}{}
	}
	return stubResolver{owned: owned}
}

func TestCreateSubscriptionsCartesianProduct(t *testing.T) {
	repo := &stubSubscriptionRepo{}
	service, err := NewSubscriptionService(repo, ownedDevices("device-1", "device-2"))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	created, err := service.CreateSubscriptions(context.Background(), "user-1",
		[]string{"device-1", "device-2"}, []string{"voltage", "current"})
	if err != nil {
		t.Fatalf("create subscriptions: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("expected 4 subscriptions, got %d", len(created))
	}
	if len(repo.created) != 4 {
		t.Fatalf("expected 4 persisted rows, got %d", len(repo.created))
	}
	for _, sub := range created {
		if sub.ID == "" {
			t.Fatalf("expected generated id")
		}
	}
}

func TestCreateSubscriptionsUnknownDeviceRejectsWholeBatch(t *testing.T) {
	repo := &stubSubscriptionRepo{}
	service, err := NewSubscriptionService(repo, ownedDevices("device-1"))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = service.CreateSubscriptions(context.Background(), "user-1",
		[]string{"device-1", "device-ghost"}, []string{"voltage"})
	var unknown *UnknownDevicesError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownDevicesError, got %v", err)
	}
	if len(unknown.DeviceIDs) != 1 || unknown.DeviceIDs[0] != "device-ghost" {
		t.Fatalf("expected device-ghost named, got %v", unknown.DeviceIDs)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no rows written, got %d", len(repo.created))
	}
}

func TestCreateSubscriptionsAllDuplicatesConflict(t *testing.T) {
	repo := &stubSubscriptionRepo{existing: []telemetry.Subscription{
		{ID: "sub-1", DeviceID: "device-1", MetricType: "voltage", CreatedAt: time.Now().UTC()},
	}}
	service, err := NewSubscriptionService(repo, ownedDevices("device-1"))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = service.CreateSubscriptions(context.Background(), "user-1",
		[]string{"device-1"}, []string{"voltage"})
	if !errors.Is(err, telemetry.ErrAlreadySubscribed) {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no rows written, got %d", len(repo.created))
	}
}

func TestCreateSubscriptionsPartialOverlapCreatesOnlyMissing(t *testing.T) {
	repo := &stubSubscriptionRepo{existing: []telemetry.Subscription{
		{ID: "sub-1", DeviceID: "device-1", MetricType: "voltage", CreatedAt: time.Now().UTC()},
	}}
	service, err := NewSubscriptionService(repo, ownedDevices("device-1", "device-2"))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	created, err := service.CreateSubscriptions(context.Background(), "user-1",
		[]string{"device-1", "device-2"}, []string{"voltage", "current"})
	if err != nil {
		t.Fatalf("create subscriptions: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 new subscriptions, got %d", len(created))
	}
	for _, sub := range created {
		if sub.DeviceID == "device-1" && sub.MetricType == "voltage" {
			t.Fatalf("existing pair recreated")
		}
	}
}

func TestCreateSubscriptionsMetricTypesNormalized(t *testing.T) {
	repo := &stubSubscriptionRepo{existing: []telemetry.Subscription{
		{ID: "sub-1", DeviceID: "device-1", MetricType: "voltage", CreatedAt: time.Now().UTC()},
	}}
	service, err := NewSubscriptionService(repo, ownedDevices("device-1"))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = service.CreateSubscriptions(context.Background(), "user-1",
		[]string{"device-1"}, []string{" Voltage ", "VOLTAGE"})
	if !errors.Is(err, telemetry.ErrAlreadySubscribed) {
		t.Fatalf("expected case-folded duplicate to conflict, got %v", err)
	}
}

func TestCreateSubscriptionsRaceSurfacesAsConflict(t *testing.T) {
	repo := &stubSubscriptionRepo{failOnWrite: true, batchErr: telemetry.ErrDuplicatePair}
	service, err := NewSubscriptionService(repo, ownedDevices("device-1"))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = service.CreateSubscriptions(context.Background(), "user-1",
		[]string{"device-1"}, []string{"voltage"})
	if !errors.Is(err, telemetry.ErrAlreadySubscribed) {
		t.Fatalf("expected race to report ErrAlreadySubscribed, got %v", err)
	}
}

func TestGetSubscriptionMissing(t *testing.T) {
	repo := &stubSubscriptionRepo{}
	service, err := NewSubscriptionService(repo, ownedDevices("device-1"))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := service.GetSubscription(context.Background(), "user-1", "sub-ghost"); !errors.Is(err, telemetry.ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}
