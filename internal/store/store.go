package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrVersionConflict means a guarded job write lost to a concurrent writer.
// The caller must re-read the job and decide whether to retry or no-op.
var ErrVersionConflict = errors.New("job version conflict")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateContent(ctx context.Context, content *models.Content) error
	GetContent(ctx context.Context, id uuid.UUID) (*models.Content, error)
	GetContentByURL(ctx context.Context, originalURL string) (*models.Content, error)
	UpdateContentStatus(ctx context.Context, id uuid.UUID, status string, opts ...ContentUpdateOption) error
	ListRecentContents(ctx context.Context, limit int) ([]*models.Content, error)

	// ClaimJob returns the existing non-terminal job for (contentID, jobType),
	// or atomically creates a new one in in_flight with attempt 1. The bool
	// reports whether a new job was created (and therefore needs dispatching).
	ClaimJob(ctx context.Context, contentID uuid.UUID, jobType string, maxAttempt int) (*models.Job, bool, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	// GetJobByCorrelation resolves a callback correlation id (the content id)
	// to the most recent job of the given type.
	GetJobByCorrelation(ctx context.Context, contentID uuid.UUID, jobType string) (*models.Job, error)
	// UpdateJob writes the job guarded by its Version field and increments the
	// persisted version on success (mirrored into job.Version). Returns
	// ErrVersionConflict if another writer got there first.
	UpdateJob(ctx context.Context, job *models.Job) error
	// ListStalledJobs returns in-flight jobs whose current attempt was
	// dispatched before the cutoff.
	ListStalledJobs(ctx context.Context, cutoff time.Time, limit int) ([]*models.Job, error)

	// ReplaceContentPlaces swaps the full set of places linked to a content in
	// one transaction, so re-applying the same result is idempotent.
	ReplaceContentPlaces(ctx context.Context, contentID uuid.UUID, places []*models.Place) error
	ListContentPlaces(ctx context.Context, contentID uuid.UUID) ([]*models.Place, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

type contentUpdateParams struct {
	Title            *string
	ThumbnailURL     *string
	PlatformUploader *string
	Platform         *string
}

type ContentUpdateOption func(*contentUpdateParams)

// WithContentMeta updates the scraped metadata fields alongside the status.
func WithContentMeta(title, thumbnailURL, platformUploader string) ContentUpdateOption {
	return func(p *contentUpdateParams) {
		if title != "" {
			p.Title = &title
		}
		if thumbnailURL != "" {
			p.ThumbnailURL = &thumbnailURL
		}
		if platformUploader != "" {
			p.PlatformUploader = &platformUploader
		}
	}
}

// WithContentPlatform records which SNS platform the content came from.
func WithContentPlatform(platform string) ContentUpdateOption {
	return func(p *contentUpdateParams) {
		if platform != "" {
			p.Platform = &platform
		}
	}
}
