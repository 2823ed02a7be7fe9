package inventory

import "errors"

var (
	// ErrSiteNotFound covers both absent sites and sites owned by another
	// user; the two are deliberately indistinguishable to callers.
	ErrSiteNotFound = errors.New("inventory: site not found")
	// ErrDeviceNotFound covers absent devices and foreign-owned devices.
	ErrDeviceNotFound = errors.New("inventory: device not found")
	// ErrInvalidPage indicates out-of-range pagination parameters.
	ErrInvalidPage = errors.New("inventory: invalid pagination")
	// ErrInvalidDevice indicates a malformed device payload.
	ErrInvalidDevice = errors.New("inventory: invalid device")
)
