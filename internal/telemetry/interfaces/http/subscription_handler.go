package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"asset-cloud/internal/audit"
	"asset-cloud/internal/auth"
	telemetryapp "asset-cloud/internal/telemetry/application"
	telemetry "asset-cloud/internal/telemetry/domain"
)

// SubscriptionHandler provides subscription HTTP endpoints.
type SubscriptionHandler struct {
	subscriptions *telemetryapp.SubscriptionService
	series        *telemetryapp.SeriesService
	auditLogger   audit.Logger
}

// NewSubscriptionHandler constructs a handler.
func NewSubscriptionHandler(subscriptions *telemetryapp.SubscriptionService, series *telemetryapp.SeriesService, auditLogger audit.Logger) (*SubscriptionHandler, error) {
	if subscriptions == nil {
		return nil, errors.New("subscription handler: nil subscription service")
	}
	if series == nil {
		return nil, errors.New("subscription handler: nil series service")
	}
	return &SubscriptionHandler{subscriptions: subscriptions, series: series, auditLogger: auditLogger}, nil
}

type createSubscriptionsRequest struct {
	DeviceIDs   []string `json:"device_ids"`
	MetricTypes []string `json:"metric_types"`
}

type subscriptionResponse struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	MetricType string    `json:"metric_type"`
	CreatedAt  time.Time `json:"created_at"`
}

type seriesPointResponse struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

type timeSeriesResponse struct {
	SubscriptionID string                `json:"subscription_id"`
	DeviceID       string                `json:"device_id"`
	MetricType     string                `json:"metric_type"`
	StartTime      time.Time             `json:"start_time"`
	EndTime        time.Time             `json:"end_time"`
	Values         []seriesPointResponse `json:"values"`
}

// ServeHTTP handles POST /subscriptions, GET
// /subscriptions/{id}/time-series and the series export variants.
func (h *SubscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/subscriptions"), "/")
	if rest == "" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCreate(w, r, userID)
		return
	}

	subscriptionID, action, found := strings.Cut(rest, "/")
	if !found || subscriptionID == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch action {
	case "time-series":
		h.handleSeries(w, r, userID, subscriptionID)
	case "export.xlsx", "export.pdf":
		h.handleExport(w, r, userID, subscriptionID, action)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *SubscriptionHandler) handleCreate(w http.ResponseWriter, r *http.Request, userID string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req createSubscriptionsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.DeviceIDs) == 0 || len(req.MetricTypes) == 0 {
		http.Error(w, "device_ids and metric_types required", http.StatusBadRequest)
		return
	}

	created, err := h.subscriptions.CreateSubscriptions(r.Context(), userID, req.DeviceIDs, req.MetricTypes)
	if err != nil {
		respondTelemetryError(w, err)
		return
	}

	out := make([]subscriptionResponse, 0, len(created))
	for _, sub := range created {
		out = append(out, subscriptionResponse{
			ID:         sub.ID,
			DeviceID:   sub.DeviceID,
			MetricType: sub.MetricType,
			CreatedAt:  sub.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)

	h.logAudit(r, userID, created)
}

func (h *SubscriptionHandler) handleSeries(w http.ResponseWriter, r *http.Request, userID, subscriptionID string) {
	series, ok := h.loadSeries(w, r, userID, subscriptionID)
	if !ok {
		return
	}

	values := make([]seriesPointResponse, 0, len(series.Points))
	for _, point := range series.Points {
		values = append(values, seriesPointResponse{Time: point.Time, Value: point.Value})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(timeSeriesResponse{
		SubscriptionID: series.SubscriptionID,
		DeviceID:       series.DeviceID,
		MetricType:     series.MetricType,
		StartTime:      series.Start,
		EndTime:        series.End,
		Values:         values,
	})
}

func (h *SubscriptionHandler) handleExport(w http.ResponseWriter, r *http.Request, userID, subscriptionID, format string) {
	series, ok := h.loadSeries(w, r, userID, subscriptionID)
	if !ok {
		return
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "export.xlsx":
		data, err = BuildSeriesXLSX(series)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "export.pdf":
		data, err = BuildSeriesPDF(series)
		contentType = "application/pdf"
	}
	if err != nil {
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%s", series.SubscriptionID, strings.TrimPrefix(format, "export.")))
	_, _ = w.Write(data)
}

func (h *SubscriptionHandler) loadSeries(w http.ResponseWriter, r *http.Request, userID, subscriptionID string) (*telemetryapp.TimeSeries, bool) {
	startValue := r.URL.Query().Get("start_time")
	endValue := r.URL.Query().Get("end_time")
	if startValue == "" || endValue == "" {
		http.Error(w, "start_time/end_time required", http.StatusBadRequest)
		return nil, false
	}
	start, err := time.Parse(time.RFC3339, startValue)
	if err != nil {
		http.Error(w, "start_time must be RFC3339", http.StatusBadRequest)
		return nil, false
	}
	end, err := time.Parse(time.RFC3339, endValue)
	if err != nil {
		http.Error(w, "end_time must be RFC3339", http.StatusBadRequest)
		return nil, false
	}

	series, err := h.series.Series(r.Context(), userID, subscriptionID, start, end)
	if err != nil {
		respondTelemetryError(w, err)
		return nil, false
	}
	return series, true
}

func (h *SubscriptionHandler) logAudit(r *http.Request, userID string, created []telemetry.Subscription) {
	if h.auditLogger == nil || len(created) == 0 {
		return
	}
	pairs := make([]map[string]string, 0, len(created))
	for _, sub := range created {
		pairs = append(pairs, map[string]string{"device_id": sub.DeviceID, "metric_type": sub.MetricType})
	}
	meta, _ := json.Marshal(map[string]any{"pairs": pairs})
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		UserID:       userID,
		AccessLevel:  string(auth.LevelFromContext(r.Context())),
		Action:       "subscription.create",
		ResourceType: "subscription",
		ResourceID:   created[0].ID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
