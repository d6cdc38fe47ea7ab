package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/internal/cache"
	"github.com/suhsaechan/tripgether/internal/store"
	"github.com/suhsaechan/tripgether/pkg/models"
)

// Synchronizer propagates terminal job outcomes to the owning content: the
// content status flips to completed/failed and, on success, the extracted
// places are persisted. It is idempotent, and a failure here is reported to
// the caller for logging only: the job's terminal state is never reversed.
type Synchronizer struct {
	store store.Store
	cache cache.Cache
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(st store.Store, ca cache.Cache) *Synchronizer {
	return &Synchronizer{store: st, cache: ca}
}

// OnTerminal marks the owner content consistent with the outcome. A missing
// owner is logged and swallowed.
func (s *Synchronizer) OnTerminal(ctx context.Context, contentID uuid.UUID, jobType string, outcome Outcome) error {
	if _, err := s.store.GetContent(ctx, contentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("owner content missing, skipping synchronization",
				"content_id", contentID, "job_type", jobType)
			return nil
		}
		return fmt.Errorf("resolving content: %w", err)
	}

	if !outcome.Success {
		if err := s.store.UpdateContentStatus(ctx, contentID, models.ContentStatusFailed); err != nil {
			return fmt.Errorf("marking content failed: %w", err)
		}
		return nil
	}

	if len(outcome.Places) > 0 {
		places := make([]*models.Place, 0, len(outcome.Places))
		for _, cp := range outcome.Places {
			p := &models.Place{
				ID:        uuid.New(),
				Name:      cp.Name,
				Address:   cp.Address,
				Country:   cp.Country,
				Latitude:  cp.Latitude,
				Longitude: cp.Longitude,
			}
			if cp.Description != "" {
				desc := cp.Description
				p.Description = &desc
			}
			if cp.RawData != "" {
				raw := cp.RawData
				p.RawData = &raw
			}
			places = append(places, p)
		}
		if err := s.store.ReplaceContentPlaces(ctx, contentID, places); err != nil {
			return fmt.Errorf("persisting places: %w", err)
		}
		if err := s.cache.Delete(ctx, cache.ContentPlacesKey(contentID)); err != nil {
			slog.Warn("failed to invalidate places cache", "content_id", contentID, "error", err)
		}
	} else {
		slog.Warn("no places in successful callback", "content_id", contentID)
	}

	var opts []store.ContentUpdateOption
	if info := outcome.ContentInfo; info != nil {
		opts = append(opts, store.WithContentMeta(info.Title, info.ThumbnailURL, info.PlatformUploader))
	}
	if err := s.store.UpdateContentStatus(ctx, contentID, models.ContentStatusCompleted, opts...); err != nil {
		return fmt.Errorf("marking content completed: %w", err)
	}
	return nil
}
