package application

import (
	"context"
	"errors"

	inventory "asset-cloud/internal/inventory/domain"
)

const (
	// DefaultPageLimit is applied when the caller omits a limit.
	DefaultPageLimit = 100
	// MaxPageLimit bounds a single listing page.
	MaxPageLimit = 1000
)

// SiteService resolves site ownership for a caller.
type SiteService struct {
	sites        inventory.SiteRepository
	defaultLimit int
	maxLimit     int
}

// SiteServiceOption configures the service.
type SiteServiceOption func(*SiteService)

// WithPageLimits overrides the default and maximum page sizes.
func WithPageLimits(defaultLimit, maxLimit int) SiteServiceOption {
	return func(s *SiteService) {
		s.defaultLimit = defaultLimit
		s.maxLimit = maxLimit
	}
}

// NewSiteService constructs a site service.
func NewSiteService(sites inventory.SiteRepository, opts ...SiteServiceOption) (*SiteService, error) {
	if sites == nil {
		return nil, errors.New("sites: nil repo")
	}
	service := &SiteService{sites: sites, defaultLimit: DefaultPageLimit, maxLimit: MaxPageLimit}
	for _, opt := range opts {
		opt(service)
	}
	if service.defaultLimit < 1 || service.maxLimit < service.defaultLimit {
		return nil, errors.New("sites: invalid page limits")
	}
	return service, nil
}

// DefaultLimit returns the page size applied when the caller omits one.
func (s *SiteService) DefaultLimit() int {
	return s.defaultLimit
}

// GetSite returns the site only when it belongs to the caller. A site owned
// by another user is reported exactly like a missing one.
func (s *SiteService) GetSite(ctx context.Context, userID, siteID string) (*inventory.Site, error) {
	if userID == "" {
		return nil, errors.New("sites: user id required")
	}
	if siteID == "" {
		return nil, inventory.ErrSiteNotFound
	}
	site, err := s.sites.GetOwned(ctx, userID, siteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, inventory.ErrSiteNotFound
	}
	return site, nil
}

// ListSites returns a stable, id-ordered page of the caller's sites.
// Out-of-range pagination is rejected, not clamped.
func (s *SiteService) ListSites(ctx context.Context, userID string, offset, limit int) ([]inventory.Site, error) {
	if userID == "" {
		return nil, errors.New("sites: user id required")
	}
	if offset < 0 {
		return nil, inventory.ErrInvalidPage
	}
	if limit < 1 || limit > s.maxLimit {
		return nil, inventory.ErrInvalidPage
	}
	return s.sites.ListByUser(ctx, userID, offset, limit)
}
