package jobs_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/internal/store"
	"github.com/suhsaechan/tripgether/pkg/models"
)

// fakeStore is an in-memory store.Store with the same version-guard semantics
// as the Postgres implementation. The beforeUpdateJob hook runs inside
// UpdateJob before the version check, which lets tests interleave a concurrent
// writer at the exact race window.
type fakeStore struct {
	mu       sync.Mutex
	contents map[uuid.UUID]*models.Content
	jobs     map[uuid.UUID]*models.Job
	jobOrder []uuid.UUID
	places   map[uuid.UUID][]*models.Place

	replaceCalls  int
	statusUpdates []string

	beforeUpdateJob func(s *fakeStore, incoming *models.Job)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contents: make(map[uuid.UUID]*models.Content),
		jobs:     make(map[uuid.UUID]*models.Job),
		places:   make(map[uuid.UUID][]*models.Place),
	}
}

func (f *fakeStore) addContent(url string) *models.Content {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	c := &models.Content{
		ID:          uuid.New(),
		OriginalURL: url,
		Status:      models.ContentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.contents[c.ID] = c
	return c
}

func copyJob(j *models.Job) *models.Job {
	cp := *j
	return &cp
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) CreateContent(_ context.Context, c *models.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.contents {
		if existing.OriginalURL == c.OriginalURL {
			return store.ErrDuplicateKey
		}
	}
	cp := *c
	f.contents[c.ID] = &cp
	return nil
}

func (f *fakeStore) GetContent(_ context.Context, id uuid.UUID) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetContentByURL(_ context.Context, url string) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contents {
		if c.OriginalURL == url {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdateContentStatus(_ context.Context, id uuid.UUID, status string, opts ...store.ContentUpdateOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contents[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

func (f *fakeStore) ListRecentContents(_ context.Context, limit int) ([]*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Content, 0, len(f.contents))
	for _, c := range f.contents {
		cp := *c
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ClaimJob(_ context.Context, contentID uuid.UUID, jobType string, maxAttempt int) (*models.Job, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.jobOrder) - 1; i >= 0; i-- {
		j := f.jobs[f.jobOrder[i]]
		if j.ContentID == contentID && j.Type == jobType && !j.Terminal() {
			return copyJob(j), false, nil
		}
	}
	now := time.Now().UTC()
	j := &models.Job{
		ID:               uuid.New(),
		ContentID:        contentID,
		Type:             jobType,
		Status:           models.JobStatusInFlight,
		Attempt:          1,
		MaxAttempt:       maxAttempt,
		LastDispatchedAt: &now,
		StartedAt:        &now,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.jobs[j.ID] = j
	f.jobOrder = append(f.jobOrder, j.ID)
	return copyJob(j), true, nil
}

func (f *fakeStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyJob(j), nil
}

func (f *fakeStore) GetJobByCorrelation(_ context.Context, contentID uuid.UUID, jobType string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.jobOrder) - 1; i >= 0; i-- {
		j := f.jobs[f.jobOrder[i]]
		if j.ContentID == contentID && j.Type == jobType {
			return copyJob(j), nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdateJob(_ context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeUpdateJob != nil {
		f.beforeUpdateJob(f, job)
	}
	cur, ok := f.jobs[job.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != job.Version {
		return store.ErrVersionConflict
	}
	cp := *job
	cp.Version = cur.Version + 1
	cp.UpdatedAt = time.Now().UTC()
	f.jobs[job.ID] = &cp
	job.Version = cp.Version
	return nil
}

func (f *fakeStore) ListStalledJobs(_ context.Context, cutoff time.Time, limit int) ([]*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Job
	for _, id := range f.jobOrder {
		j := f.jobs[id]
		if j.Status != models.JobStatusInFlight {
			continue
		}
		if j.LastDispatchedAt == nil || !j.LastDispatchedAt.Before(cutoff) {
			continue
		}
		out = append(out, copyJob(j))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ReplaceContentPlaces(_ context.Context, contentID uuid.UUID, places []*models.Place) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceCalls++
	out := make([]*models.Place, 0, len(places))
	for _, p := range places {
		cp := *p
		out = append(out, &cp)
	}
	f.places[contentID] = out
	return nil
}

func (f *fakeStore) ListContentPlaces(_ context.Context, contentID uuid.UUID) ([]*models.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.places[contentID], nil
}

func (f *fakeStore) GetAPIKeyByPrefix(context.Context, string) ([]*models.APIKey, error) {
	return nil, nil
}
func (f *fakeStore) UpdateAPIKeyLastUsed(context.Context, uuid.UUID) error { return nil }
func (f *fakeStore) CreateAPIKey(context.Context, *models.APIKey) error    { return nil }
func (f *fakeStore) ListAPIKeys(context.Context) ([]*models.APIKey, error) { return nil, nil }
func (f *fakeStore) RevokeAPIKey(context.Context, uuid.UUID) error         { return nil }

// mustJob returns the stored job row by id.
func (f *fakeStore) mustJob(id uuid.UUID) *models.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyJob(f.jobs[id])
}

// backdateDispatch moves a job's last dispatch into the past so the sweeper
// sees it as stalled.
func (f *fakeStore) backdateDispatch(id uuid.UUID, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.jobs[id]
	past := j.LastDispatchedAt.Add(-d)
	j.LastDispatchedAt = &past
}

// fakeCache records job statuses, generic entries and deletions in memory.
type fakeCache struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]string
	kv       map[string][]byte
	deleted  []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		statuses: make(map[uuid.UUID]string),
		kv:       make(map[string][]byte),
	}
}

func (c *fakeCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kv[key] = append([]byte(nil), val...)
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.kv[key]
	return b, ok, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.kv, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *fakeCache) Ping(context.Context) error { return nil }

func (c *fakeCache) deletedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

func (c *fakeCache) SetJobStatus(_ context.Context, jobID uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[jobID] = status
	return nil
}

func (c *fakeCache) GetJobStatus(_ context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[jobID]
	return s, ok, nil
}

func (c *fakeCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

// fakeAIClient records extraction requests and can simulate transport failure.
type fakeAIClient struct {
	mu    sync.Mutex
	calls []extractionCall
	err   error
}

type extractionCall struct {
	ContentID uuid.UUID
	SNSURL    string
}

func (a *fakeAIClient) RequestExtraction(_ context.Context, contentID uuid.UUID, snsURL string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, extractionCall{ContentID: contentID, SNSURL: snsURL})
	return a.err
}

func (a *fakeAIClient) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}
