package inventory

import (
	"context"
	"errors"
	"time"
)

// DeviceType enumerates supported monitored asset kinds.
type DeviceType string

const (
	DeviceTypeSolarPanel  DeviceType = "pv_panel"
	DeviceTypeWindTurbine DeviceType = "wind_turbine"
	DeviceTypeBattery     DeviceType = "battery"
	DeviceTypeInverter    DeviceType = "inverter"
)

// NormalizeDeviceType validates a device type string.
func NormalizeDeviceType(value string) (DeviceType, bool) {
	switch DeviceType(value) {
	case DeviceTypeSolarPanel, DeviceTypeWindTurbine, DeviceTypeBattery, DeviceTypeInverter:
		return DeviceType(value), true
	default:
		return "", false
	}
}

// Device represents a monitored asset belonging to one site.
type Device struct {
	ID        string
	Name      string
	SiteID    string
	Type      DeviceType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks device invariants.
func (d Device) Validate() error {
	if d.ID == "" {
		return errors.New("device: empty id")
	}
	if d.SiteID == "" {
		return errors.New("device: empty site id")
	}
	if d.Name == "" {
		return errors.New("device: empty name")
	}
	if _, ok := NormalizeDeviceType(string(d.Type)); !ok {
		return errors.New("device: invalid type")
	}
	return nil
}

// DeviceUpdate carries the fields of a partial device update.
// Nil fields are left untouched.
type DeviceUpdate struct {
	Name   *string
	SiteID *string
	Type   *DeviceType
}

// DeviceRepository manages device persistence. Mutations and lookups that
// take a userID are scoped through the device's site ownership chain.
type DeviceRepository interface {
	Create(ctx context.Context, device *Device) error
	GetOwned(ctx context.Context, userID, deviceID string) (*Device, error)
	UpdateOwned(ctx context.Context, userID, deviceID string, update DeviceUpdate) (*Device, error)
	DeleteOwned(ctx context.Context, userID, deviceID string) (bool, error)
	FindOwned(ctx context.Context, userID string, deviceIDs []string) ([]Device, error)
}
