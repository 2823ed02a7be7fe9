package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"asset-cloud/internal/auth"
	telemetryapp "asset-cloud/internal/telemetry/application"
	telemetry "asset-cloud/internal/telemetry/domain"
)

type stubSubscriptionRepo struct {
	existing []telemetry.Subscription
	created  []telemetry.Subscription
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
	s.created = append(s.created, subscriptions...)
	return nil
}

func (s *stubSubscriptionRepo) GetOwned(_ context.Context, _, subscriptionID string) (*telemetry.Subscription, error) {
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

type stubReadingRepo struct {
	readings []telemetry.Reading
}

func (s *stubReadingRepo) LatestOwned(_ context.Context, _, deviceID, metricType string, n int) ([]telemetry.Reading, error) {
	var out []telemetry.Reading
	for _, reading := range s.readings {
		if reading.DeviceID == deviceID && reading.MetricType == metricType {
			out = append(out, reading)
		}
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func (s *stubReadingRepo) Range(_ context.Context, deviceID, metricType string, start, end time.Time, limit int) ([]telemetry.Reading, error) {
	var out []telemetry.Reading
	for _, reading := range s.readings {
		if reading.DeviceID != deviceID || reading.MetricType != metricType {
			continue
		}
		if reading.Time.Before(start) || reading.Time.After(end) {
			continue
		}
		out = append(out, reading)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func newSubscriptionHandler(t *testing.T, subRepo *stubSubscriptionRepo, readings *stubReadingRepo, ownedIDs ...string) *SubscriptionHandler {
	t.Helper()
	owned := make(map[string]struct{}, len(ownedIDs))
	for _, id := range ownedIDs {
		owned[id] = struct{}{}
	}
	subscriptions, err := telemetryapp.NewSubscriptionService(subRepo, stubResolver{owned: owned})
	if err != nil {
		t.Fatalf("new subscription service: %v", err)
	}
	series, err := telemetryapp.NewSeriesService(subscriptions, readings, 100)
	if err != nil {
		t.Fatalf("new series service: %v", err)
	}
	handler, err := NewSubscriptionHandler(subscriptions, series, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func authedRequest(method, target, body, userID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(auth.WithIdentity(req.Context(), userID, auth.LevelViewer, nil))
}

func TestSubscriptionHandlerCreate(t *testing.T) {
	repo := &stubSubscriptionRepo{}
	handler := newSubscriptionHandler(t, repo, &stubReadingRepo{}, "device-1", "device-2")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/subscriptions",
		`{"device_ids":["device-1","device-2"],"metric_types":["voltage","current"]}`, "user-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var created []subscriptionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("expected 4 subscriptions, got %d", len(created))
	}
}

func TestSubscriptionHandlerUnknownDevice404(t *testing.T) {
	repo := &stubSubscriptionRepo{}
	handler := newSubscriptionHandler(t, repo, &stubReadingRepo{}, "device-1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/subscriptions",
		`{"device_ids":["device-1","device-ghost"],"metric_types":["voltage"]}`, "user-1"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "device-ghost") {
		t.Fatalf("expected offending id in body, got %s", rec.Body.String())
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no rows written")
	}
}

func TestSubscriptionHandlerDuplicate409(t *testing.T) {
	repo := &stubSubscriptionRepo{existing: []telemetry.Subscription{
		{ID: "sub-1", DeviceID: "device-1", MetricType: "voltage", CreatedAt: time.Now().UTC()},
	}}
	handler := newSubscriptionHandler(t, repo, &stubReadingRepo{}, "device-1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/subscriptions",
		`{"device_ids":["device-1"],"metric_types":["voltage"]}`, "user-1"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSubscriptionHandlerTimeSeries(t *testing.T) {
	end := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	repo := &stubSubscriptionRepo{existing: []telemetry.Subscription{
		{ID: "sub-1", DeviceID: "device-1", MetricType: "voltage", CreatedAt: end.Add(-24 * time.Hour)},
	}}
	readings := &stubReadingRepo{readings: []telemetry.Reading{
		{Time: end.Add(-2 * time.Hour), DeviceID: "device-1", MetricType: "voltage", Value: 230.1},
		{Time: end.Add(-time.Hour), DeviceID: "device-1", MetricType: "voltage", Value: 231.4},
	}}
	handler := newSubscriptionHandler(t, repo, readings, "device-1")

	target := "/subscriptions/sub-1/time-series?start_time=" + end.Add(-3*time.Hour).Format(time.RFC3339) + "&end_time=" + end.Format(time.RFC3339)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, target, "", "user-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp timeSeriesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SubscriptionID != "sub-1" || len(resp.Values) != 2 {
		t.Fatalf("unexpected series %+v", resp)
	}
}

func TestSubscriptionHandlerTimeSeriesBadWindow(t *testing.T) {
	repo := &stubSubscriptionRepo{existing: []telemetry.Subscription{
		{ID: "sub-1", DeviceID: "device-1", MetricType: "voltage"},
	}}
	handler := newSubscriptionHandler(t, repo, &stubReadingRepo{}, "device-1")

	cases := []string{
		"/subscriptions/sub-1/time-series",
		"/subscriptions/sub-1/time-series?start_time=yesterday&end_time=2026-08-20T12:00:00Z",
		"/subscriptions/sub-1/time-series?start_time=2026-08-20T12:00:00Z&end_time=2026-08-20T11:00:00Z",
	}
	for _, target := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(http.MethodGet, target, "", "user-1"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestSubscriptionHandlerTimeSeriesUnknownSubscription404(t *testing.T) {
	handler := newSubscriptionHandler(t, &stubSubscriptionRepo{}, &stubReadingRepo{}, "device-1")

	target := "/subscriptions/sub-ghost/time-series?start_time=2026-08-20T10:00:00Z&end_time=2026-08-20T12:00:00Z"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, target, "", "user-1"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubscriptionHandlerExportXLSX(t *testing.T) {
	end := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	repo := &stubSubscriptionRepo{existing: []telemetry.Subscription{
		{ID: "sub-1", DeviceID: "device-1", MetricType: "voltage"},
	}}
	handler := newSubscriptionHandler(t, repo, &stubReadingRepo{}, "device-1")

	target := "/subscriptions/sub-1/export.xlsx?start_time=" + end.Add(-time.Hour).Format(time.RFC3339) + "&end_time=" + end.Format(time.RFC3339)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, target, "", "user-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("unexpected content type %s", got)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected non-empty workbook")
	}
}
