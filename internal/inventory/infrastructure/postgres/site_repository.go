package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	inventory "asset-cloud/internal/inventory/domain"
)

const defaultSitesTable = "sites"

// SiteRepository is a Postgres implementation for sites.
type SiteRepository struct {
	db    DBTX
	table string
}

// NewSiteRepository constructs a repository.
func NewSiteRepository(db DBTX, opts ...SiteOption) *SiteRepository {
	repo := &SiteRepository{db: db, table: defaultSitesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// SiteOption configures the repository.
type SiteOption func(*SiteRepository)

// WithSiteTable overrides the default table name.
func WithSiteTable(table string) SiteOption {
	return func(repo *SiteRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// GetOwned loads a site by id, scoped to its owner.
func (r *SiteRepository) GetOwned(ctx context.Context, userID, siteID string) (*inventory.Site, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("site repo: nil db")
	}
	if userID == "" || siteID == "" {
		return nil, errors.New("site repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, name, user_id, created_at
FROM %s
WHERE id = $1 AND user_id = $2
LIMIT 1`, r.table)

	var site inventory.Site
	if err := r.db.QueryRowContext(ctx, query, siteID, userID).Scan(
		&site.ID,
		&site.Name,
		&site.UserID,
		&site.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	site.CreatedAt = site.CreatedAt.UTC()
	return &site, nil
}

// ListByUser loads a page of a user's sites in stable id order.
func (r *SiteRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]inventory.Site, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("site repo: nil db")
	}
	if userID == "" {
		return nil, errors.New("site repo: empty user id")
	}

	query := fmt.Sprintf(`
SELECT id, name, user_id, created_at
FROM %s
WHERE user_id = $1
ORDER BY id ASC
OFFSET $2 LIMIT $3`, r.table)

	rows, err := r.db.QueryContext(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventory.Site
	for rows.Next() {
		var site inventory.Site
		if err := rows.Scan(&site.ID, &site.Name, &site.UserID, &site.CreatedAt); err != nil {
			return nil, err
		}
		site.CreatedAt = site.CreatedAt.UTC()
		result = append(result, site)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
