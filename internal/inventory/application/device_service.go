package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"asset-cloud/internal/auth"
	inventory "asset-cloud/internal/inventory/domain"
	"asset-cloud/internal/observability/metrics"
)

// CreateDeviceRequest carries the attributes of a new device.
type CreateDeviceRequest struct {
	Name   string
	SiteID string
	Type   string
}

// DeviceService handles device lifecycle operations, gated by access tier
// and site ownership.
type DeviceService struct {
	sites   inventory.SiteRepository
	devices inventory.DeviceRepository
}

// NewDeviceService constructs a device service.
func NewDeviceService(sites inventory.SiteRepository, devices inventory.DeviceRepository) (*DeviceService, error) {
	if sites == nil {
		return nil, errors.New("devices: nil site repo")
	}
	if devices == nil {
		return nil, errors.New("devices: nil device repo")
	}
	return &DeviceService{sites: sites, devices: devices}, nil
}

// CreateDevice persists a new device under a site the caller owns.
// The caller must hold the technical tier; the target site must exist and
// belong to the caller, otherwise it is reported as not found.
func (s *DeviceService) CreateDevice(ctx context.Context, userID string, req CreateDeviceRequest) (*inventory.Device, error) {
	if err := requireTechnical(ctx); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors.New("devices: user id required")
	}
	deviceType, ok := inventory.NormalizeDeviceType(req.Type)
	if !ok {
		return nil, inventory.ErrInvalidDevice
	}
	if req.Name == "" || req.SiteID == "" {
		return nil, inventory.ErrInvalidDevice
	}

	site, err := s.sites.GetOwned(ctx, userID, req.SiteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, inventory.ErrSiteNotFound
	}

	now := time.Now().UTC()
	device := &inventory.Device{
		ID:        uuid.NewString(),
		Name:      req.Name,
		SiteID:    site.ID,
		Type:      deviceType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := device.Validate(); err != nil {
		return nil, err
	}
	if err := s.devices.Create(ctx, device); err != nil {
		metrics.IncDeviceOp("create", metrics.ResultError)
		return nil, err
	}
	metrics.IncDeviceOp("create", metrics.ResultSuccess)
	return device, nil
}

// UpdateDevice applies a partial update to a device the caller owns.
// Unset fields are left untouched.
func (s *DeviceService) UpdateDevice(ctx context.Context, userID, deviceID string, update inventory.DeviceUpdate) (*inventory.Device, error) {
	if err := requireTechnical(ctx); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors.New("devices: user id required")
	}
	if deviceID == "" {
		return nil, inventory.ErrDeviceNotFound
	}
	if update.Type != nil {
		if _, ok := inventory.NormalizeDeviceType(string(*update.Type)); !ok {
			return nil, inventory.ErrInvalidDevice
		}
	}
	if update.Name != nil && *update.Name == "" {
		return nil, inventory.ErrInvalidDevice
	}
	if update.SiteID != nil {
		// Moving a device requires the destination site to be owned too.
		site, err := s.sites.GetOwned(ctx, userID, *update.SiteID)
		if err != nil {
			return nil, err
		}
		if site == nil {
			return nil, inventory.ErrSiteNotFound
		}
	}

	device, err := s.devices.UpdateOwned(ctx, userID, deviceID, update)
	if err != nil {
		metrics.IncDeviceOp("update", metrics.ResultError)
		return nil, err
	}
	if device == nil {
		return nil, inventory.ErrDeviceNotFound
	}
	metrics.IncDeviceOp("update", metrics.ResultSuccess)
	return device, nil
}

// DeleteDevice removes a device the caller owns. The delete is permanent
// and does not cascade to subscriptions or readings.
func (s *DeviceService) DeleteDevice(ctx context.Context, userID, deviceID string) error {
	if err := requireTechnical(ctx); err != nil {
		return err
	}
	if userID == "" {
		return errors.New("devices: user id required")
	}
	if deviceID == "" {
		return inventory.ErrDeviceNotFound
	}
	deleted, err := s.devices.DeleteOwned(ctx, userID, deviceID)
	if err != nil {
		metrics.IncDeviceOp("delete", metrics.ResultError)
		return err
	}
	if !deleted {
		return inventory.ErrDeviceNotFound
	}
	metrics.IncDeviceOp("delete", metrics.ResultSuccess)
	return nil
}

// ResolveOwnedDevices returns the subset of the requested device ids that
// exist and belong, through their site, to the caller.
func (s *DeviceService) ResolveOwnedDevices(ctx context.Context, userID string, deviceIDs []string) (map[string]struct{}, error) {
	if userID == "" {
		return nil, errors.New("devices: user id required")
	}
	if len(deviceIDs) == 0 {
		return map[string]struct{}{}, nil
	}
	devices, err := s.devices.FindOwned(ctx, userID, deviceIDs)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]struct{}, len(devices))
	for _, device := range devices {
		owned[device.ID] = struct{}{}
	}
	return owned, nil
}

func requireTechnical(ctx context.Context) error {
	if !auth.LevelAtLeast(auth.LevelFromContext(ctx), auth.LevelTechnical) {
		return auth.ErrForbidden
	}
	return nil
}
