package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"asset-cloud/internal/auth"
	telemetryapp "asset-cloud/internal/telemetry/application"
	telemetry "asset-cloud/internal/telemetry/domain"
)

// LatestMetricHandler serves the newest stored reading of a device metric.
type LatestMetricHandler struct {
	service *telemetryapp.QueryService
}

// NewLatestMetricHandler constructs a handler.
func NewLatestMetricHandler(service *telemetryapp.QueryService) (*LatestMetricHandler, error) {
	if service == nil {
		return nil, errors.New("latest metric handler: nil service")
	}
	return &LatestMetricHandler{service: service}, nil
}

type latestMetricResponse struct {
	DeviceID   string    `json:"device_id"`
	MetricType string    `json:"metric_type"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Time       time.Time `json:"time"`
}

// ServeHTTP handles GET /devices/{device_id}/metrics/latest?metric_type=.
func (h *LatestMetricHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	deviceID := r.PathValue("device_id")
	metricType := r.URL.Query().Get("metric_type")
	if metricType == "" {
		http.Error(w, "metric_type required", http.StatusBadRequest)
		return
	}

	reading, err := h.service.Latest(r.Context(), userID, deviceID, metricType)
	if err != nil {
		respondTelemetryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(latestMetricResponse{
		DeviceID:   reading.DeviceID,
		MetricType: reading.MetricType,
		Value:      reading.Value,
		Unit:       reading.Unit,
		Time:       reading.Time,
	})
}

func respondTelemetryError(w http.ResponseWriter, err error) {
	var unknownDevices *telemetryapp.UnknownDevicesError
	switch {
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.As(err, &unknownDevices):
		http.Error(w, unknownDevices.Error(), http.StatusNotFound)
	case errors.Is(err, telemetry.ErrNoReading):
		http.Error(w, "no reading found", http.StatusNotFound)
	case errors.Is(err, telemetry.ErrSubscriptionNotFound):
		http.Error(w, "subscription not found", http.StatusNotFound)
	case errors.Is(err, telemetry.ErrAlreadySubscribed):
		http.Error(w, "already subscribed", http.StatusConflict)
	case errors.Is(err, telemetry.ErrUnknownMetricType), errors.Is(err, telemetry.ErrInvalidRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
