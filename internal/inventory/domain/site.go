package inventory

import (
	"context"
	"errors"
	"time"
)

// Site represents a physical location owned by exactly one user.
type Site struct {
	ID        string
	Name      string
	UserID    string
	CreatedAt time.Time
}

// Validate checks site invariants.
func (s Site) Validate() error {
	if s.ID == "" {
		return errors.New("site: empty id")
	}
	if s.UserID == "" {
		return errors.New("site: empty user id")
	}
	if s.Name == "" {
		return errors.New("site: empty name")
	}
	return nil
}

// SiteRepository manages site persistence. Lookups are owner-scoped:
// a site owned by another user behaves exactly like a missing one.
type SiteRepository interface {
	GetOwned(ctx context.Context, userID, siteID string) (*Site, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]Site, error)
}
