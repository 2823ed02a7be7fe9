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
	inventoryapp "asset-cloud/internal/inventory/application"
	inventory "asset-cloud/internal/inventory/domain"
)

type stubDeviceRepo struct {
	devices map[string]*inventory.Device
	sites   map[string]*inventory.Site
}

func (s *stubDeviceRepo) ownerOf(device *inventory.Device) string {
	site, ok := s.sites[device.SiteID]
	if !ok {
		return ""
	}
	return site.UserID
}

func (s *stubDeviceRepo) Create(_ context.Context, device *inventory.Device) error {
	s.devices[device.ID] = device
	return nil
}

func (s *stubDeviceRepo) GetOwned(_ context.Context, userID, deviceID string) (*inventory.Device, error) {
	device, ok := s.devices[deviceID]
	if !ok || s.ownerOf(device) != userID {
		return nil, nil
	}
	return device, nil
}

func (s *stubDeviceRepo) UpdateOwned(_ context.Context, userID, deviceID string, update inventory.DeviceUpdate) (*inventory.Device, error) {
	device, ok := s.devices[deviceID]
	if !ok || s.ownerOf(device) != userID {
		return nil, nil
	}
	if update.Name != nil {
		device.Name = *update.Name
	}
	if update.SiteID != nil {
		device.SiteID = *update.SiteID
	}
	if update.Type != nil {
		device.Type = *update.Type
	}
	device.UpdatedAt = time.Now().UTC()
	return device, nil
}

func (s *stubDeviceRepo) DeleteOwned(_ context.Context, userID, deviceID string) (bool, error) {
	device, ok := s.devices[deviceID]
	if !ok || s.ownerOf(device) != userID {
		return false, nil
	}
	delete(s.devices, deviceID)
	return true, nil
}

func (s *stubDeviceRepo) FindOwned(_ context.Context, userID string, deviceIDs []string) ([]inventory.Device, error) {
	var list []inventory.Device
	for _, id := range deviceIDs {
		if device, ok := s.devices[id]; ok && s.ownerOf(device) == userID {
			list = append(list, *device)
		}
	}
	return list, nil
}

func newDeviceHandler(t *testing.T, latest http.Handler) (*DeviceHandler, *stubDeviceRepo) {
	t.Helper()
	sites := stubSiteRepo{sites: map[string]*inventory.Site{
		"site-1": {ID: "site-1", Name: "North Field", UserID: "user-1"},
		"site-2": {ID: "site-2", Name: "South Field", UserID: "user-2"},
	}}
	repo := &stubDeviceRepo{
		sites: sites.sites,
		devices: map[string]*inventory.Device{
			"device-1": {ID: "device-1", Name: "Panel A", SiteID: "site-1", Type: inventory.DeviceTypeSolarPanel},
		},
	}
	service, err := inventoryapp.NewDeviceService(sites, repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewDeviceHandler(service, latest, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, repo
}

func deviceRequest(method, target, body, userID string, level auth.AccessLevel) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(auth.WithIdentity(req.Context(), userID, level, nil))
}

func TestDeviceHandlerCreate(t *testing.T) {
	handler, repo := newDeviceHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, deviceRequest(http.MethodPost, "/devices",
		`{"name":"Turbine T","site_id":"site-1","device_type":"wind_turbine"}`,
		"user-1", auth.LevelTechnical))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp deviceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" || resp.Type != "wind_turbine" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, ok := repo.devices[resp.ID]; !ok {
		t.Fatalf("device not persisted")
	}
}

func TestDeviceHandlerCreateViewerForbidden(t *testing.T) {
	handler, _ := newDeviceHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, deviceRequest(http.MethodPost, "/devices",
		`{"name":"Turbine T","site_id":"site-1","device_type":"wind_turbine"}`,
		"user-1", auth.LevelViewer))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", rec.Code)
	}
}

func TestDeviceHandlerCreateForeignSite404(t *testing.T) {
	handler, _ := newDeviceHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, deviceRequest(http.MethodPost, "/devices",
		`{"name":"Panel X","site_id":"site-2","device_type":"pv_panel"}`,
		"user-1", auth.LevelTechnical))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign site, got %d", rec.Code)
	}
}

func TestDeviceHandlerUpdatePartial(t *testing.T) {
	handler, repo := newDeviceHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, deviceRequest(http.MethodPut, "/devices/device-1",
		`{"name":"Panel A2"}`, "user-1", auth.LevelTechnical))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.devices["device-1"].Name != "Panel A2" {
		t.Fatalf("rename not applied")
	}
	if repo.devices["device-1"].Type != inventory.DeviceTypeSolarPanel {
		t.Fatalf("unset field changed")
	}
}

func TestDeviceHandlerDeleteMissing404(t *testing.T) {
	handler, _ := newDeviceHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, deviceRequest(http.MethodDelete, "/devices/device-ghost", "", "user-1", auth.LevelTechnical))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeviceHandlerLatestDelegation(t *testing.T) {
	var gotDeviceID string
	latest := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDeviceID = r.PathValue("device_id")
		w.WriteHeader(http.StatusOK)
	})
	handler, _ := newDeviceHandler(t, latest)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, deviceRequest(http.MethodGet, "/devices/device-1/metrics/latest?metric_type=voltage", "", "user-1", auth.LevelTechnical))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from delegate, got %d", rec.Code)
	}
	if gotDeviceID != "device-1" {
		t.Fatalf("expected device_id path value, got %q", gotDeviceID)
	}
}
