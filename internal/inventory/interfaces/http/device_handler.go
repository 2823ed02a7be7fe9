package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"asset-cloud/internal/audit"
	"asset-cloud/internal/auth"
	inventoryapp "asset-cloud/internal/inventory/application"
	inventory "asset-cloud/internal/inventory/domain"
)

// DeviceHandler provides device HTTP endpoints. Latest-metric requests
// under /devices/{id}/metrics/latest are delegated to the metrics handler.
type DeviceHandler struct {
	service       *inventoryapp.DeviceService
	latestMetrics http.Handler
	auditLogger   audit.Logger
}

// NewDeviceHandler constructs a handler.
func NewDeviceHandler(service *inventoryapp.DeviceService, latestMetrics http.Handler, auditLogger audit.Logger) (*DeviceHandler, error) {
	if service == nil {
		return nil, errors.New("device handler: nil service")
	}
	return &DeviceHandler{service: service, latestMetrics: latestMetrics, auditLogger: auditLogger}, nil
}

type createDeviceRequest struct {
	Name   string `json:"name"`
	SiteID string `json:"site_id"`
	Type   string `json:"device_type"`
}

type updateDeviceRequest struct {
	Name   *string `json:"name"`
	SiteID *string `json:"site_id"`
	Type   *string `json:"device_type"`
}

type deviceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SiteID    string    `json:"site_id"`
	Type      string    `json:"device_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDeviceResponse(device inventory.Device) deviceResponse {
	return deviceResponse{
		ID:        device.ID,
		Name:      device.Name,
		SiteID:    device.SiteID,
		Type:      string(device.Type),
		CreatedAt: device.CreatedAt,
		UpdatedAt: device.UpdatedAt,
	}
}

// ServeHTTP handles POST /devices, PUT/DELETE /devices/{device_id} and
// routes GET /devices/{device_id}/metrics/latest onward.
func (h *DeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/devices"), "/")
	if rest == "" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCreate(w, r, userID)
		return
	}

	if deviceID, ok := strings.CutSuffix(rest, "/metrics/latest"); ok {
		if h.latestMetrics == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		r = r.Clone(r.Context())
		r.SetPathValue("device_id", deviceID)
		h.latestMetrics.ServeHTTP(w, r)
		return
	}
	if strings.Contains(rest, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.handleUpdate(w, r, userID, rest)
	case http.MethodDelete:
		h.handleDelete(w, r, userID, rest)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *DeviceHandler) handleCreate(w http.ResponseWriter, r *http.Request, userID string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req createDeviceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	device, err := h.service.CreateDevice(r.Context(), userID, inventoryapp.CreateDeviceRequest{
		Name:   req.Name,
		SiteID: req.SiteID,
		Type:   req.Type,
	})
	if err != nil {
		respondInventoryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDeviceResponse(*device))

	h.logAudit(r, userID, "device.create", device.ID, device.SiteID, map[string]any{
		"device_type": string(device.Type),
		"name":        device.Name,
	})
}

func (h *DeviceHandler) handleUpdate(w http.ResponseWriter, r *http.Request, userID, deviceID string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req updateDeviceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	update := inventory.DeviceUpdate{Name: req.Name, SiteID: req.SiteID}
	if req.Type != nil {
		deviceType := inventory.DeviceType(*req.Type)
		update.Type = &deviceType
	}

	device, err := h.service.UpdateDevice(r.Context(), userID, deviceID, update)
	if err != nil {
		respondInventoryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toDeviceResponse(*device))

	h.logAudit(r, userID, "device.update", device.ID, device.SiteID, map[string]any{
		"device_type": string(device.Type),
		"name":        device.Name,
	})
}

func (h *DeviceHandler) handleDelete(w http.ResponseWriter, r *http.Request, userID, deviceID string) {
	if err := h.service.DeleteDevice(r.Context(), userID, deviceID); err != nil {
		respondInventoryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "id": deviceID})

	h.logAudit(r, userID, "device.delete", deviceID, "", nil)
}

func (h *DeviceHandler) logAudit(r *http.Request, userID, action, deviceID, siteID string, metadata map[string]any) {
	if h.auditLogger == nil {
		return
	}
	var meta []byte
	if metadata != nil {
		meta, _ = json.Marshal(metadata)
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		UserID:       userID,
		AccessLevel:  string(auth.LevelFromContext(r.Context())),
		Action:       action,
		ResourceType: "device",
		ResourceID:   deviceID,
		SiteID:       siteID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
