package links

import (
	"context"
	"errors"
	"fmt"

	"linkdeck/internal/api"
	"linkdeck/internal/cache"
	"linkdeck/internal/models"
)

// ErrDeleteAborted is returned when the confirmation step declines a
// delete. No network call has been issued.
var ErrDeleteAborted = errors.New("delete aborted")

// ConfirmFunc asks the user to confirm an irrevocable action.
type ConfirmFunc func() bool

// Create validates the payload locally, issues exactly one create
// call, and invalidates every cached list page so the collection
// reflects the new link on its next read. The cache is never mutated
// optimistically; the server stays the sole source of truth for
// derived fields like access_count.
func (s *Service) Create(ctx context.Context, in api.CreateLink) (*models.Link, error) {
	const op = "links.Service.Create"

	if err := s.checkValid(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	link, err := s.client.CreateLinkRecord(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Invalidate(cache.ListPrefix())
	s.logger.Info().Str("short_code", link.ShortCode).Msg("link created")

	return link, nil
}

// Update applies a partial update and invalidates the collection along
// with the link's detail and stats entries. A failed update leaves
// every cache entry untouched.
func (s *Service) Update(ctx context.Context, id int64, in api.UpdateLink) (*models.Link, error) {
	const op = "links.Service.Update"

	if err := s.checkValid(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	link, err := s.client.UpdateLinkRecord(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Invalidate(cache.ListPrefix())
	s.cache.Invalidate(cache.LinkKey(id))
	s.cache.Invalidate(cache.StatsKey(link.ShortCode))
	s.logger.Info().Int64("id", id).Msg("link updated")

	return link, nil
}

// Delete removes a link after an explicit confirmation. The server-side
// effect is irrevocable, so a declined confirmation aborts before any
// call is issued. On success the collection, detail and stats entries
// are invalidated.
func (s *Service) Delete(ctx context.Context, link *models.Link, confirm ConfirmFunc) error {
	const op = "links.Service.Delete"

	if confirm == nil || !confirm() {
		return fmt.Errorf("%s: %w", op, ErrDeleteAborted)
	}

	if err := s.client.DeleteLinkRecord(ctx, link.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Invalidate(cache.ListPrefix())
	s.cache.Invalidate(cache.LinkKey(link.ID))
	s.cache.Invalidate(cache.StatsKey(link.ShortCode))
	s.logger.Info().Int64("id", link.ID).Str("short_code", link.ShortCode).Msg("link deleted")

	return nil
}
