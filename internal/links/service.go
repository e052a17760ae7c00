// Package links is the console's data layer for the link collection:
// cached reads keyed by page and search term, and mutations that keep
// the cache consistent through invalidation.
package links

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"linkdeck/internal/api"
	"linkdeck/internal/cache"
	"linkdeck/internal/models"
)

// Client is the slice of the transport the service consumes.
type Client interface {
	ListLinks(ctx context.Context, skip, limit int, search string) (*models.LinkPage, error)
	GetLink(ctx context.Context, id int64) (*models.Link, error)
	CreateLinkRecord(ctx context.Context, in api.CreateLink) (*models.Link, error)
	UpdateLinkRecord(ctx context.Context, id int64, in api.UpdateLink) (*models.Link, error)
	DeleteLinkRecord(ctx context.Context, id int64) error
	LinkStats(ctx context.Context, shortCode string) (*models.LinkStats, error)
}

// Service composes the transport and the query cache. All list and
// detail reads go through the cache; all mutations go through exactly
// one transport call followed by invalidation.
type Service struct {
	client   Client
	cache    *cache.Cache
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(client Client, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{
		client:   client,
		cache:    c,
		validate: newValidate(),
		logger:   logger,
	}
}

// List returns one page of the link collection. The cache key is the
// full (page, pageSize, search) composite, so revisiting an earlier
// page or search serves from cache until a mutation invalidates it.
func (s *Service) List(ctx context.Context, p Pager) (*models.LinkPage, error) {
	const op = "links.Service.List"

	key := cache.ListKey(p.Page, p.PageSize, p.Search)

	entry, err := s.cache.Read(ctx, key, func(ctx context.Context) (any, error) {
		return s.client.ListLinks(ctx, p.Skip(), p.PageSize, p.Search)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	page, ok := entry.Data.(*models.LinkPage)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected cache entry for %s", op, key)
	}

	return page, nil
}

// Get returns a single link by its canonical numeric id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Link, error) {
	const op = "links.Service.Get"

	key := cache.LinkKey(id)

	entry, err := s.cache.Read(ctx, key, func(ctx context.Context) (any, error) {
		return s.client.GetLink(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	link, ok := entry.Data.(*models.Link)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected cache entry for %s", op, key)
	}

	return link, nil
}

// Stats returns the access statistics of a link. The remote API keys
// stats by short code; the transport wraps that quirk.
func (s *Service) Stats(ctx context.Context, shortCode string) (*models.LinkStats, error) {
	const op = "links.Service.Stats"

	key := cache.StatsKey(shortCode)

	entry, err := s.cache.Read(ctx, key, func(ctx context.Context) (any, error) {
		return s.client.LinkStats(ctx, shortCode)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats, ok := entry.Data.(*models.LinkStats)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected cache entry for %s", op, key)
	}

	return stats, nil
}
