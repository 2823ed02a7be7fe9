package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	inventory "asset-cloud/internal/inventory/domain"
)

const (
	defaultDevicesTable = "devices"
)

// DeviceRepository is a Postgres implementation for devices. Owner-scoped
// queries join through the sites table so that a device under a foreign
// site is indistinguishable from a missing one.
type DeviceRepository struct {
	db         DBTX
	table      string
	sitesTable string
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository(db DBTX, opts ...DeviceOption) *DeviceRepository {
	repo := &DeviceRepository{db: db, table: defaultDevicesTable, sitesTable: defaultSitesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// DeviceOption configures the repository.
type DeviceOption func(*DeviceRepository)

// WithDeviceTable overrides the default table name.
func WithDeviceTable(table string) DeviceOption {
	return func(repo *DeviceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Create inserts a new device row.
func (r *DeviceRepository) Create(ctx context.Context, device *inventory.Device) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	if device == nil {
		return errors.New("device repo: nil device")
	}
	if err := device.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	name,
	site_id,
	device_type,
	created_at,
	updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6
)`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		device.ID,
		device.Name,
		device.SiteID,
		string(device.Type),
		device.CreatedAt,
		device.UpdatedAt,
	)
	return err
}

// GetOwned loads a device by id, scoped through site ownership.
func (r *DeviceRepository) GetOwned(ctx context.Context, userID, deviceID string) (*inventory.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if userID == "" || deviceID == "" {
		return nil, errors.New("device repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT d.id, d.name, d.site_id, d.device_type, d.created_at, d.updated_at
FROM %s d
JOIN %s s ON s.id = d.site_id
WHERE d.id = $1 AND s.user_id = $2
LIMIT 1`, r.table, r.sitesTable)

	var device inventory.Device
	if err := r.db.QueryRowContext(ctx, query, deviceID, userID).Scan(
		&device.ID,
		&device.Name,
		&device.SiteID,
		&device.Type,
		&device.CreatedAt,
		&device.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	device.CreatedAt = device.CreatedAt.UTC()
	device.UpdatedAt = device.UpdatedAt.UTC()
	return &device, nil
}

// UpdateOwned applies a partial update to an owned device and returns the
// updated row, or nil when the device is absent or foreign-owned.
func (r *DeviceRepository) UpdateOwned(ctx context.Context, userID, deviceID string, update inventory.DeviceUpdate) (*inventory.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if userID == "" || deviceID == "" {
		return nil, errors.New("device repo: empty id")
	}

	query := fmt.Sprintf(`
UPDATE %s d
SET name = COALESCE($3, d.name),
	site_id = COALESCE($4, d.site_id),
	device_type = COALESCE($5, d.device_type),
	updated_at = NOW()
FROM %s s
WHERE d.id = $1 AND d.site_id = s.id AND s.user_id = $2
RETURNING d.id, d.name, d.site_id, d.device_type, d.created_at, d.updated_at`, r.table, r.sitesTable)

	var typeArg *string
	if update.Type != nil {
		value := string(*update.Type)
		typeArg = &value
	}

	var device inventory.Device
	if err := r.db.QueryRowContext(ctx, query, deviceID, userID, update.Name, update.SiteID, typeArg).Scan(
		&device.ID,
		&device.Name,
		&device.SiteID,
		&device.Type,
		&device.CreatedAt,
		&device.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	device.CreatedAt = device.CreatedAt.UTC()
	device.UpdatedAt = device.UpdatedAt.UTC()
	return &device, nil
}

// DeleteOwned removes an owned device. Returns false when nothing matched.
func (r *DeviceRepository) DeleteOwned(ctx context.Context, userID, deviceID string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("device repo: nil db")
	}
	if userID == "" || deviceID == "" {
		return false, errors.New("device repo: empty id")
	}

	query := fmt.Sprintf(`
DELETE FROM %s d
USING %s s
WHERE d.id = $1 AND d.site_id = s.id AND s.user_id = $2`, r.table, r.sitesTable)

	result, err := r.db.ExecContext(ctx, query, deviceID, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// FindOwned returns the requested devices that belong to the user.
func (r *DeviceRepository) FindOwned(ctx context.Context, userID string, deviceIDs []string) ([]inventory.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if userID == "" {
		return nil, errors.New("device repo: empty user id")
	}
	if len(deviceIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(deviceIDs)+1)
	args = append(args, userID)
	placeholders := make([]string, len(deviceIDs))
	for i, id := range deviceIDs {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}

	query := fmt.Sprintf(`
SELECT d.id, d.name, d.site_id, d.device_type, d.created_at, d.updated_at
FROM %s d
JOIN %s s ON s.id = d.site_id
WHERE s.user_id = $1 AND d.id IN (%s)
ORDER BY d.id ASC`, r.table, r.sitesTable, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventory.Device
	for rows.Next() {
		var device inventory.Device
		if err := rows.Scan(
			&device.ID,
			&device.Name,
			&device.SiteID,
			&device.Type,
			&device.CreatedAt,
			&device.UpdatedAt,
		); err != nil {
			return nil, err
		}
		device.CreatedAt = device.CreatedAt.UTC()
		device.UpdatedAt = device.UpdatedAt.UTC()
		result = append(result, device)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
