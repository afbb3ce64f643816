package db

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/trendwatch/trend-monitor/internal/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresStore implements Store on top of lib/pq.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const catalogColumns = `
	id, media_type, external_id, tmdb_id, imdb_id, title, translated_title,
	overview, tagline, year, status, poster_path, backdrop_path,
	watch_providers, season_count, episode_count, primary_rating, vote_count,
	secondary_score, trending_score, watchers, watchers_delta, delta_3m,
	trending_updated_at, created_at, updated_at`

func scanCatalogItem(row interface{ Scan(...interface{}) error }) (*models.CatalogItem, error) {
	var (
		item            models.CatalogItem
		tmdbID          sql.NullInt64
		imdbID          sql.NullString
		translatedTitle sql.NullString
		overview        sql.NullString
		tagline         sql.NullString
		year            sql.NullInt64
		status          sql.NullString
		posterPath      sql.NullString
		backdropPath    sql.NullString
		watchProviders  sql.NullString
		seasonCount     sql.NullInt64
		episodeCount    sql.NullInt64
		primaryRating   sql.NullFloat64
		voteCount       sql.NullInt64
		secondaryScore  sql.NullFloat64
		watchersDelta   sql.NullInt64
		delta3m         sql.NullInt64
		trendingUpdated sql.NullTime
	)

	err := row.Scan(
		&item.ID, &item.MediaType, &item.ExternalID, &tmdbID, &imdbID,
		&item.Title, &translatedTitle, &overview, &tagline, &year, &status,
		&posterPath, &backdropPath, &watchProviders, &seasonCount,
		&episodeCount, &primaryRating, &voteCount, &secondaryScore,
		&item.TrendingScore, &item.Watchers, &watchersDelta, &delta3m,
		&trendingUpdated, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.TMDBID = tmdbID.Int64
	item.IMDBID = imdbID.String
	item.TranslatedTitle = translatedTitle.String
	item.Overview = overview.String
	item.Tagline = tagline.String
	item.Year = int(year.Int64)
	item.Status = status.String
	item.PosterPath = posterPath.String
	item.BackdropPath = backdropPath.String
	item.WatchProviders = watchProviders.String
	if seasonCount.Valid {
		n := int(seasonCount.Int64)
		item.SeasonCount = &n
	}
	if episodeCount.Valid {
		n := int(episodeCount.Int64)
		item.EpisodeCount = &n
	}
	if primaryRating.Valid {
		v := primaryRating.Float64
		item.PrimaryRating = &v
	}
	if voteCount.Valid {
		n := int(voteCount.Int64)
		item.VoteCount = &n
	}
	if secondaryScore.Valid {
		v := secondaryScore.Float64
		item.SecondaryScore = &v
	}
	if watchersDelta.Valid {
		n := int(watchersDelta.Int64)
		item.WatchersDelta = &n
	}
	if delta3m.Valid {
		n := int(delta3m.Int64)
		item.Delta3M = &n
	}
	if trendingUpdated.Valid {
		t := trendingUpdated.Time
		item.TrendingUpdatedAt = &t
	}

	return &item, nil
}

func (s *PostgresStore) GetCatalogItem(ctx context.Context, mediaType models.MediaType, externalID int64) (*models.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_items WHERE media_type = $1 AND external_id = $2`
	item, err := scanCatalogItem(s.db.QueryRowContext(ctx, query, mediaType, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}
	return item, nil
}

// UpsertCatalogItem creates or updates the row keyed by (media_type,
// external_id). Nullable text and rating columns keep their stored value when
// the incoming one is empty, so a fetch that came back without a field never
// erases a previously populated one.
func (s *PostgresStore) UpsertCatalogItem(ctx context.Context, item *models.CatalogItem) (bool, error) {
	query := `
		INSERT INTO catalog_items (
			media_type, external_id, tmdb_id, imdb_id, title, translated_title,
			overview, tagline, year, status, poster_path, backdrop_path,
			watch_providers, season_count, episode_count, primary_rating,
			vote_count, secondary_score, trending_score, watchers,
			watchers_delta, delta_3m, trending_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (media_type, external_id) DO UPDATE SET
			tmdb_id = COALESCE(EXCLUDED.tmdb_id, catalog_items.tmdb_id),
			imdb_id = COALESCE(NULLIF(EXCLUDED.imdb_id, ''), catalog_items.imdb_id),
			title = COALESCE(NULLIF(EXCLUDED.title, ''), catalog_items.title),
			translated_title = COALESCE(NULLIF(EXCLUDED.translated_title, ''), catalog_items.translated_title),
			overview = COALESCE(NULLIF(EXCLUDED.overview, ''), catalog_items.overview),
			tagline = COALESCE(NULLIF(EXCLUDED.tagline, ''), catalog_items.tagline),
			year = COALESCE(NULLIF(EXCLUDED.year, 0), catalog_items.year),
			status = COALESCE(NULLIF(EXCLUDED.status, ''), catalog_items.status),
			poster_path = COALESCE(NULLIF(EXCLUDED.poster_path, ''), catalog_items.poster_path),
			backdrop_path = COALESCE(NULLIF(EXCLUDED.backdrop_path, ''), catalog_items.backdrop_path),
			watch_providers = COALESCE(NULLIF(EXCLUDED.watch_providers, ''), catalog_items.watch_providers),
			season_count = COALESCE(EXCLUDED.season_count, catalog_items.season_count),
			episode_count = COALESCE(EXCLUDED.episode_count, catalog_items.episode_count),
			primary_rating = COALESCE(EXCLUDED.primary_rating, catalog_items.primary_rating),
			vote_count = COALESCE(EXCLUDED.vote_count, catalog_items.vote_count),
			secondary_score = COALESCE(EXCLUDED.secondary_score, catalog_items.secondary_score),
			trending_score = EXCLUDED.trending_score,
			watchers = EXCLUDED.watchers,
			watchers_delta = COALESCE(EXCLUDED.watchers_delta, catalog_items.watchers_delta),
			delta_3m = COALESCE(EXCLUDED.delta_3m, catalog_items.delta_3m),
			trending_updated_at = COALESCE(EXCLUDED.trending_updated_at, catalog_items.trending_updated_at),
			updated_at = NOW()
		RETURNING id, (xmax = 0)`

	var created bool
	err := s.db.QueryRowContext(ctx, query,
		item.MediaType, item.ExternalID,
		nullInt64(item.TMDBID), item.IMDBID, item.Title, item.TranslatedTitle,
		item.Overview, item.Tagline, item.Year, item.Status, item.PosterPath,
		item.BackdropPath, item.WatchProviders,
		nullIntPtr(item.SeasonCount), nullIntPtr(item.EpisodeCount),
		nullFloatPtr(item.PrimaryRating), nullIntPtr(item.VoteCount),
		nullFloatPtr(item.SecondaryScore),
		item.TrendingScore, item.Watchers,
		nullIntPtr(item.WatchersDelta), nullIntPtr(item.Delta3M),
		nullTimePtr(item.TrendingUpdatedAt),
	).Scan(&item.ID, &created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert catalog item: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) ListTrendingItems(ctx context.Context, mediaType models.MediaType, limit int) ([]*models.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + `
		FROM catalog_items
		WHERE media_type = $1 AND trending_updated_at IS NOT NULL
		ORDER BY trending_score DESC, watchers DESC
		LIMIT $2`
	return s.queryCatalogItems(ctx, query, mediaType, limit)
}

func (s *PostgresStore) ListItemsMissingRatings(ctx context.Context, limit int) ([]*models.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + `
		FROM catalog_items
		WHERE imdb_id IS NOT NULL AND imdb_id <> ''
		  AND (primary_rating IS NULL OR vote_count IS NULL OR secondary_score IS NULL)
		ORDER BY id
		LIMIT $1`
	return s.queryCatalogItems(ctx, query, limit)
}

func (s *PostgresStore) ListItemsMissingMetadata(ctx context.Context, limit int) ([]*models.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + `
		FROM catalog_items
		WHERE translated_title IS NULL OR translated_title = ''
		   OR overview IS NULL OR overview = ''
		   OR poster_path IS NULL OR poster_path = ''
		   OR (media_type = 'show' AND (season_count IS NULL OR episode_count IS NULL))
		ORDER BY id
		LIMIT $1`
	return s.queryCatalogItems(ctx, query, limit)
}

func (s *PostgresStore) queryCatalogItems(ctx context.Context, query string, args ...interface{}) ([]*models.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog items: %w", err)
	}
	defer rows.Close()

	var items []*models.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) InsertSnapshot(ctx context.Context, snap *models.WatcherSnapshot) error {
	query := `
		INSERT INTO watcher_snapshots (media_type, external_id, watchers, created_at)
		VALUES ($1, $2, $3, COALESCE($4, NOW()))
		RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		snap.MediaType, snap.ExternalID, snap.Watchers, nullTime(snap.CreatedAt),
	).Scan(&snap.ID, &snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecentSnapshots(ctx context.Context, mediaType models.MediaType, externalID int64, limit int) ([]*models.WatcherSnapshot, error) {
	query := `
		SELECT id, media_type, external_id, watchers, created_at
		FROM watcher_snapshots
		WHERE media_type = $1 AND external_id = $2
		ORDER BY created_at DESC
		LIMIT $3`
	rows, err := s.db.QueryContext(ctx, query, mediaType, externalID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*models.WatcherSnapshot
	for rows.Next() {
		var snap models.WatcherSnapshot
		if err := rows.Scan(&snap.ID, &snap.MediaType, &snap.ExternalID, &snap.Watchers, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.SyncJob) error {
	query := `
		INSERT INTO sync_jobs (type, status)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`
	if job.Status == "" {
		job.Status = models.JobStatusRunning
	}
	err := s.db.QueryRowContext(ctx, query, job.Type, job.Status).
		Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id int64) (*models.SyncJob, error) {
	query := `SELECT id, type, status, stats, created_at, updated_at FROM sync_jobs WHERE id = $1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func scanJob(row interface{ Scan(...interface{}) error }) (*models.SyncJob, error) {
	var job models.SyncJob
	var stats []byte
	if err := row.Scan(&job.ID, &job.Type, &job.Status, &stats, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	if len(stats) > 0 {
		job.Stats = json.RawMessage(stats)
	}
	return &job, nil
}

func (s *PostgresStore) ListRecentJobs(ctx context.Context, limit int) ([]*models.SyncJob, error) {
	query := `SELECT id, type, status, stats, created_at, updated_at FROM sync_jobs ORDER BY id DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *models.SyncJob) error {
	query := `UPDATE sync_jobs SET status = $2, stats = $3, updated_at = NOW() WHERE id = $1`
	var stats interface{}
	if len(job.Stats) > 0 {
		stats = []byte(job.Stats)
	}
	if _, err := s.db.ExecContext(ctx, query, job.ID, job.Status, stats); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateTasks(ctx context.Context, tasks []*models.SyncTask) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sync_tasks (job_id, external_id, payload, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, task := range tasks {
		if task.Status == "" {
			task.Status = models.TaskStatusPending
		}
		payload, err := json.Marshal(task.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal task payload: %w", err)
		}
		if err := stmt.QueryRowContext(ctx, task.JobID, task.ExternalID, payload, task.Status).
			Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ClaimPendingTasks relies on FOR UPDATE SKIP LOCKED so two processors racing
// over the same pending set never claim the same row.
func (s *PostgresStore) ClaimPendingTasks(ctx context.Context, types []models.JobType, limit int, reclaimBefore time.Time) ([]*models.SyncTask, error) {
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	query := `
		UPDATE sync_tasks SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
		WHERE id IN (
			SELECT t.id
			FROM sync_tasks t
			JOIN sync_jobs j ON j.id = t.job_id
			WHERE j.type = ANY($1)
			  AND (t.status = 'pending' OR (t.status = 'processing' AND t.updated_at < $2))
			ORDER BY t.id
			LIMIT $3
			FOR UPDATE OF t SKIP LOCKED
		)
		RETURNING id, job_id, external_id, payload, status, attempts, last_error, created_at, updated_at`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(typeNames), reclaimBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.SyncTask
	for rows.Next() {
		var task models.SyncTask
		var payload []byte
		if err := rows.Scan(&task.ID, &task.JobID, &task.ExternalID, &payload,
			&task.Status, &task.Attempts, &task.LastError, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, taskID int64, status models.TaskStatus, lastError string) error {
	query := `UPDATE sync_tasks SET status = $2, last_error = $3, updated_at = NOW() WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, taskID, status, lastError); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountTasksByStatus(ctx context.Context, jobID int64) (models.TaskCounts, error) {
	query := `SELECT status, COUNT(*) FROM sync_tasks WHERE job_id = $1 GROUP BY status`
	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return models.TaskCounts{}, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	var counts models.TaskCounts
	for rows.Next() {
		var status models.TaskStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return models.TaskCounts{}, fmt.Errorf("failed to scan task count: %w", err)
		}
		switch status {
		case models.TaskStatusPending:
			counts.Pending = n
		case models.TaskStatusProcessing:
			counts.Processing = n
		case models.TaskStatusDone:
			counts.Done = n
		case models.TaskStatusError:
			counts.Error = n
		}
	}
	return counts, rows.Err()
}

func (s *PostgresStore) UpsertAiring(ctx context.Context, entry *models.AiringEntry) (bool, error) {
	query := `
		INSERT INTO airing_entries (external_id, season, episode, title, air_date, network, entry_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id, season, episode) DO UPDATE SET
			title = EXCLUDED.title,
			air_date = EXCLUDED.air_date,
			network = EXCLUDED.network,
			entry_type = EXCLUDED.entry_type,
			updated_at = NOW()
		RETURNING id, (xmax = 0)`

	var created bool
	err := s.db.QueryRowContext(ctx, query,
		entry.ExternalID, entry.Season, entry.Episode, entry.Title,
		entry.AirDate, entry.Network, entry.EntryType,
	).Scan(&entry.ID, &created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert airing: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) ListAiringsBetween(ctx context.Context, from, to time.Time) ([]*models.AiringEntry, error) {
	query := `
		SELECT id, external_id, season, episode, title, air_date, network, entry_type, created_at, updated_at
		FROM airing_entries
		WHERE air_date >= $1 AND air_date <= $2
		ORDER BY air_date`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query airings: %w", err)
	}
	defer rows.Close()

	var entries []*models.AiringEntry
	for rows.Next() {
		var e models.AiringEntry
		if err := rows.Scan(&e.ID, &e.ExternalID, &e.Season, &e.Episode, &e.Title,
			&e.AirDate, &e.Network, &e.EntryType, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan airing: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) DeleteAiringsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM airing_entries WHERE air_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete airings: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) DeleteAiringsOlderThanExcluding(ctx context.Context, cutoff time.Time, keepExternalIDs []int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM airing_entries WHERE air_date < $1 AND NOT (external_id = ANY($2))`,
		cutoff, pq.Array(keepExternalIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete airings: %w", err)
	}
	return res.RowsAffected()
}

func nullInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullIntPtr(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloatPtr(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullTimePtr(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v time.Time) interface{} {
	if v.IsZero() {
		return nil
	}
	return v
}
