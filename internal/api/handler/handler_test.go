package handler_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/internal/jobs"
	"github.com/suhsaechan/tripgether/internal/store"
	"github.com/suhsaechan/tripgether/pkg/models"
)

// stubStore implements store.Store with per-method overrides. Methods without
// an override return not-found or empty results.
type stubStore struct {
	getContent          func(uuid.UUID) (*models.Content, error)
	getContentByURL     func(string) (*models.Content, error)
	createContent       func(*models.Content) error
	updateContentStatus func(uuid.UUID, string) error
	listRecentContents  func(int) ([]*models.Content, error)
	getJob              func(uuid.UUID) (*models.Job, error)
	listContentPlaces   func(uuid.UUID) ([]*models.Place, error)
	createAPIKey        func(*models.APIKey) error
	listAPIKeys         func() ([]*models.APIKey, error)
	revokeAPIKey        func(uuid.UUID) error
}

func (s *stubStore) Ping(context.Context) error { return nil }

func (s *stubStore) CreateContent(_ context.Context, c *models.Content) error {
	if s.createContent != nil {
		return s.createContent(c)
	}
	return nil
}

func (s *stubStore) GetContent(_ context.Context, id uuid.UUID) (*models.Content, error) {
	if s.getContent != nil {
		return s.getContent(id)
	}
	return nil, store.ErrNotFound
}

func (s *stubStore) GetContentByURL(_ context.Context, url string) (*models.Content, error) {
	if s.getContentByURL != nil {
		return s.getContentByURL(url)
	}
	return nil, store.ErrNotFound
}

func (s *stubStore) UpdateContentStatus(_ context.Context, id uuid.UUID, status string, _ ...store.ContentUpdateOption) error {
	if s.updateContentStatus != nil {
		return s.updateContentStatus(id, status)
	}
	return nil
}

func (s *stubStore) ListRecentContents(_ context.Context, limit int) ([]*models.Content, error) {
	if s.listRecentContents != nil {
		return s.listRecentContents(limit)
	}
	return nil, nil
}

func (s *stubStore) ClaimJob(context.Context, uuid.UUID, string, int) (*models.Job, bool, error) {
	return nil, false, store.ErrNotFound
}

func (s *stubStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	if s.getJob != nil {
		return s.getJob(id)
	}
	return nil, store.ErrNotFound
}

func (s *stubStore) GetJobByCorrelation(context.Context, uuid.UUID, string) (*models.Job, error) {
	return nil, store.ErrNotFound
}

func (s *stubStore) UpdateJob(context.Context, *models.Job) error { return nil }

func (s *stubStore) ListStalledJobs(context.Context, time.Time, int) ([]*models.Job, error) {
	return nil, nil
}

func (s *stubStore) ReplaceContentPlaces(context.Context, uuid.UUID, []*models.Place) error {
	return nil
}

func (s *stubStore) ListContentPlaces(_ context.Context, id uuid.UUID) ([]*models.Place, error) {
	if s.listContentPlaces != nil {
		return s.listContentPlaces(id)
	}
	return nil, nil
}

func (s *stubStore) GetAPIKeyByPrefix(context.Context, string) ([]*models.APIKey, error) {
	return nil, nil
}

func (s *stubStore) UpdateAPIKeyLastUsed(context.Context, uuid.UUID) error { return nil }

func (s *stubStore) CreateAPIKey(_ context.Context, k *models.APIKey) error {
	if s.createAPIKey != nil {
		return s.createAPIKey(k)
	}
	return nil
}

func (s *stubStore) ListAPIKeys(context.Context) ([]*models.APIKey, error) {
	if s.listAPIKeys != nil {
		return s.listAPIKeys()
	}
	return nil, nil
}

func (s *stubStore) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	if s.revokeAPIKey != nil {
		return s.revokeAPIKey(id)
	}
	return nil
}

var _ store.Store = (*stubStore)(nil)

// stubDispatcher records Dispatch calls.
type stubDispatcher struct {
	job     *models.Job
	created bool
	err     error
	calls   int
}

func (d *stubDispatcher) Dispatch(_ context.Context, contentID uuid.UUID, jobType string) (*models.Job, bool, error) {
	d.calls++
	return d.job, d.created, d.err
}

// stubApplier records Apply calls.
type stubApplier struct {
	result  *jobs.ApplyResult
	err     error
	calls   int
	lastID  uuid.UUID
	outcome jobs.Outcome
}

func (a *stubApplier) Apply(_ context.Context, contentID uuid.UUID, _ string, outcome jobs.Outcome) (*jobs.ApplyResult, error) {
	a.calls++
	a.lastID = contentID
	a.outcome = outcome
	return a.result, a.err
}

// stubCache serves a canned job status and canned generic entries, and records
// what handlers store.
type stubCache struct {
	status string
	ok     bool
	data   map[string][]byte
	sets   map[string][]byte
}

func (c *stubCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	if c.sets == nil {
		c.sets = make(map[string][]byte)
	}
	c.sets[key] = val
	return nil
}

func (c *stubCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *stubCache) Delete(context.Context, string) error { return nil }
func (c *stubCache) Ping(context.Context) error           { return nil }
func (c *stubCache) SetJobStatus(context.Context, uuid.UUID, string, time.Duration) error {
	return nil
}
func (c *stubCache) GetJobStatus(context.Context, uuid.UUID) (string, bool, error) {
	return c.status, c.ok, nil
}
func (c *stubCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}
