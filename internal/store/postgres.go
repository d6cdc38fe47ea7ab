package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/suhsaechan/tripgether/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Contents ---

const contentColumns = `id, original_url, platform, title, thumbnail_url, platform_uploader, caption, status, created_at, updated_at`

func scanContent(row pgx.Row) (*models.Content, error) {
	var c models.Content
	err := row.Scan(&c.ID, &c.OriginalURL, &c.Platform, &c.Title, &c.ThumbnailURL,
		&c.PlatformUploader, &c.Caption, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateContent(ctx context.Context, content *models.Content) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO contents (id, original_url, platform, title, thumbnail_url, platform_uploader, caption, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		content.ID, content.OriginalURL, content.Platform, content.Title, content.ThumbnailURL,
		content.PlatformUploader, content.Caption, content.Status, content.CreatedAt, content.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetContent(ctx context.Context, id uuid.UUID) (*models.Content, error) {
	c, err := scanContent(s.pool.QueryRow(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetContentByURL(ctx context.Context, originalURL string) (*models.Content, error) {
	c, err := scanContent(s.pool.QueryRow(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE original_url = $1`, originalURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content by url: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateContentStatus(ctx context.Context, id uuid.UUID, status string, opts ...ContentUpdateOption) error {
	params := &contentUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	now := time.Now().UTC()
	query := `UPDATE contents SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if params.Title != nil {
		query += fmt.Sprintf(", title = $%d", argIdx)
		args = append(args, *params.Title)
		argIdx++
	}
	if params.ThumbnailURL != nil {
		query += fmt.Sprintf(", thumbnail_url = $%d", argIdx)
		args = append(args, *params.ThumbnailURL)
		argIdx++
	}
	if params.PlatformUploader != nil {
		query += fmt.Sprintf(", platform_uploader = $%d", argIdx)
		args = append(args, *params.PlatformUploader)
		argIdx++
	}
	if params.Platform != nil {
		query += fmt.Sprintf(", platform = $%d", argIdx)
		args = append(args, *params.Platform)
		argIdx++
	}

	query += " WHERE id = $1"

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update content status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListRecentContents(ctx context.Context, limit int) ([]*models.Content, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+contentColumns+` FROM contents ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent contents: %w", err)
	}
	defer rows.Close()

	var contents []*models.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

// --- Jobs ---

const jobColumns = `id, content_id, type, status, attempt, max_attempt, result, failure_reason, started_at, last_dispatched_at, finished_at, version, created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.ContentID, &j.Type, &j.Status, &j.Attempt, &j.MaxAttempt,
		&j.Result, &j.FailureReason, &j.StartedAt, &j.LastDispatchedAt, &j.FinishedAt,
		&j.Version, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) ClaimJob(ctx context.Context, contentID uuid.UUID, jobType string, maxAttempt int) (*models.Job, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin claim job: %w", err)
	}
	defer tx.Rollback(ctx)

	job, err := scanJob(tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE content_id = $1 AND type = $2 AND status IN ($3, $4)
		 ORDER BY created_at DESC LIMIT 1
		 FOR UPDATE`,
		contentID, jobType, models.JobStatusPending, models.JobStatusInFlight))
	if err == nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit claim job: %w", err)
		}
		return job, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("find active job: %w", err)
	}

	now := time.Now().UTC()
	job = &models.Job{
		ID:               uuid.New(),
		ContentID:        contentID,
		Type:             jobType,
		Status:           models.JobStatusInFlight,
		Attempt:          1,
		MaxAttempt:       maxAttempt,
		StartedAt:        &now,
		LastDispatchedAt: &now,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO jobs (id, content_id, type, status, attempt, max_attempt, started_at, last_dispatched_at, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.ContentID, job.Type, job.Status, job.Attempt, job.MaxAttempt,
		job.StartedAt, job.LastDispatchedAt, job.Version, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			// Lost a claim race; the winner's row exists now.
			_ = tx.Rollback(ctx)
			existing, gerr := s.GetJobByCorrelation(ctx, contentID, jobType)
			if gerr != nil {
				return nil, false, fmt.Errorf("reread after claim race: %w", gerr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("insert job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit claim job: %w", err)
	}
	return job, true, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) GetJobByCorrelation(ctx context.Context, contentID uuid.UUID, jobType string) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE content_id = $1 AND type = $2
		 ORDER BY created_at DESC LIMIT 1`,
		contentID, jobType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job by correlation: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $3, attempt = $4, result = $5, failure_reason = $6,
		        last_dispatched_at = $7, finished_at = $8, version = version + 1, updated_at = $9
		 WHERE id = $1 AND version = $2`,
		job.ID, job.Version, job.Status, job.Attempt, job.Result, job.FailureReason,
		job.LastDispatchedAt, job.FinishedAt, now)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, job.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check job exists: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	job.Version++
	job.UpdatedAt = now
	return nil
}

func (s *PostgresStore) ListStalledJobs(ctx context.Context, cutoff time.Time, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE status = $1 AND last_dispatched_at < $2
		 ORDER BY last_dispatched_at ASC LIMIT $3`,
		models.JobStatusInFlight, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stalled jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// --- Places ---

func (s *PostgresStore) ReplaceContentPlaces(ctx context.Context, contentID uuid.UUID, places []*models.Place) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace places: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM content_places WHERE content_id = $1`, contentID); err != nil {
		return fmt.Errorf("delete content places: %w", err)
	}

	now := time.Now().UTC()
	position := 0
	linked := make(map[uuid.UUID]struct{}, len(places))
	for _, p := range places {
		var placeID uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO places (id, name, address, country, latitude, longitude, description, raw_data, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (name, latitude, longitude) DO UPDATE SET
			   address = EXCLUDED.address,
			   country = EXCLUDED.country,
			   description = EXCLUDED.description,
			   raw_data = EXCLUDED.raw_data
			 RETURNING id`,
			p.ID, p.Name, p.Address, p.Country, p.Latitude, p.Longitude,
			p.Description, p.RawData, now,
		).Scan(&placeID)
		if err != nil {
			return fmt.Errorf("upsert place: %w", err)
		}

		// The payload may repeat a place identity; link each resolved row once.
		if _, ok := linked[placeID]; ok {
			continue
		}
		linked[placeID] = struct{}{}

		if _, err := tx.Exec(ctx,
			`INSERT INTO content_places (content_id, place_id, position, created_at)
			 VALUES ($1, $2, $3, $4)`,
			contentID, placeID, position, now); err != nil {
			return fmt.Errorf("link content place: %w", err)
		}
		position++
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace places: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListContentPlaces(ctx context.Context, contentID uuid.UUID) ([]*models.Place, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.id, p.name, p.address, p.country, p.latitude, p.longitude, p.description, p.raw_data, p.created_at
		 FROM places p
		 JOIN content_places cp ON cp.place_id = p.id
		 WHERE cp.content_id = $1
		 ORDER BY cp.position ASC`, contentID)
	if err != nil {
		return nil, fmt.Errorf("list content places: %w", err)
	}
	defer rows.Close()

	var places []*models.Place
	for rows.Next() {
		var p models.Place
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Country, &p.Latitude,
			&p.Longitude, &p.Description, &p.RawData, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		places = append(places, &p)
	}
	return places, rows.Err()
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
