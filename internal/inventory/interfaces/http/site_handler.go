package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"asset-cloud/internal/auth"
	inventoryapp "asset-cloud/internal/inventory/application"
	inventory "asset-cloud/internal/inventory/domain"
)

// SiteHandler provides site HTTP endpoints.
type SiteHandler struct {
	service *inventoryapp.SiteService
}

// NewSiteHandler constructs a handler.
func NewSiteHandler(service *inventoryapp.SiteService) (*SiteHandler, error) {
	if service == nil {
		return nil, errors.New("site handler: nil service")
	}
	return &SiteHandler{service: service}, nil
}

type siteResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toSiteResponse(site inventory.Site) siteResponse {
	return siteResponse{
		ID:        site.ID,
		Name:      site.Name,
		UserID:    site.UserID,
		CreatedAt: site.CreatedAt,
	}
}

// ServeHTTP handles GET /sites and GET /sites/{site_id}.
func (h *SiteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sites"), "/")
	if rest == "" {
		h.handleList(w, r, userID)
		return
	}
	h.handleGet(w, r, userID, rest)
}

func (h *SiteHandler) handleList(w http.ResponseWriter, r *http.Request, userID string) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		http.Error(w, "skip must be an integer", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", h.service.DefaultLimit())
	if err != nil {
		http.Error(w, "limit must be an integer", http.StatusBadRequest)
		return
	}

	sites, err := h.service.ListSites(r.Context(), userID, skip, limit)
	if err != nil {
		respondInventoryError(w, err)
		return
	}
	if len(sites) == 0 {
		http.Error(w, "no sites found", http.StatusNotFound)
		return
	}

	out := make([]siteResponse, 0, len(sites))
	for _, site := range sites {
		out = append(out, toSiteResponse(site))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *SiteHandler) handleGet(w http.ResponseWriter, r *http.Request, userID, siteID string) {
	site, err := h.service.GetSite(r.Context(), userID, siteID)
	if err != nil {
		respondInventoryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toSiteResponse(*site))
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func respondInventoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, inventory.ErrSiteNotFound):
		http.Error(w, "site not found", http.StatusNotFound)
	case errors.Is(err, inventory.ErrDeviceNotFound):
		http.Error(w, "device not found", http.StatusNotFound)
	case errors.Is(err, inventory.ErrInvalidDevice), errors.Is(err, inventory.ErrInvalidPage):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
