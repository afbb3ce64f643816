package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trendwatch/trend-monitor/internal/models"
)

// MemoryStore is an in-memory Store used by tests and by local development
// without a database. All operations are serialized behind one mutex, which
// makes ClaimPendingTasks atomic the same way the postgres claim query is.
type MemoryStore struct {
	mu sync.Mutex

	items     map[catalogKey]*models.CatalogItem
	snapshots []*models.WatcherSnapshot
	jobs      map[int64]*models.SyncJob
	tasks     map[int64]*models.SyncTask
	airings   map[airingKey]*models.AiringEntry

	nextItemID   int64
	nextSnapID   int64
	nextJobID    int64
	nextTaskID   int64
	nextAiringID int64
}

type catalogKey struct {
	mediaType  models.MediaType
	externalID int64
}

type airingKey struct {
	externalID int64
	season     int
	episode    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[catalogKey]*models.CatalogItem),
		jobs:    make(map[int64]*models.SyncJob),
		tasks:   make(map[int64]*models.SyncTask),
		airings: make(map[airingKey]*models.AiringEntry),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) GetCatalogItem(ctx context.Context, mediaType models.MediaType, externalID int64) (*models.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[catalogKey{mediaType, externalID}]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (s *MemoryStore) UpsertCatalogItem(ctx context.Context, item *models.CatalogItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := catalogKey{item.MediaType, item.ExternalID}
	now := time.Now()

	existing, ok := s.items[key]
	if !ok {
		s.nextItemID++
		item.ID = s.nextItemID
		item.CreatedAt = now
		item.UpdatedAt = now
		copied := *item
		s.items[key] = &copied
		return true, nil
	}

	merged := *item
	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = now

	// Mirror the postgres COALESCE semantics: empty incoming values keep the
	// stored ones.
	if merged.TMDBID == 0 {
		merged.TMDBID = existing.TMDBID
	}
	if merged.IMDBID == "" {
		merged.IMDBID = existing.IMDBID
	}
	if merged.Title == "" {
		merged.Title = existing.Title
	}
	if merged.TranslatedTitle == "" {
		merged.TranslatedTitle = existing.TranslatedTitle
	}
	if merged.Overview == "" {
		merged.Overview = existing.Overview
	}
	if merged.Tagline == "" {
		merged.Tagline = existing.Tagline
	}
	if merged.Year == 0 {
		merged.Year = existing.Year
	}
	if merged.Status == "" {
		merged.Status = existing.Status
	}
	if merged.PosterPath == "" {
		merged.PosterPath = existing.PosterPath
	}
	if merged.BackdropPath == "" {
		merged.BackdropPath = existing.BackdropPath
	}
	if merged.WatchProviders == "" {
		merged.WatchProviders = existing.WatchProviders
	}
	if merged.SeasonCount == nil {
		merged.SeasonCount = existing.SeasonCount
	}
	if merged.EpisodeCount == nil {
		merged.EpisodeCount = existing.EpisodeCount
	}
	if merged.PrimaryRating == nil {
		merged.PrimaryRating = existing.PrimaryRating
	}
	if merged.VoteCount == nil {
		merged.VoteCount = existing.VoteCount
	}
	if merged.SecondaryScore == nil {
		merged.SecondaryScore = existing.SecondaryScore
	}
	if merged.WatchersDelta == nil {
		merged.WatchersDelta = existing.WatchersDelta
	}
	if merged.Delta3M == nil {
		merged.Delta3M = existing.Delta3M
	}
	if merged.TrendingUpdatedAt == nil {
		merged.TrendingUpdatedAt = existing.TrendingUpdatedAt
	}

	s.items[key] = &merged
	item.ID = merged.ID
	return false, nil
}

func (s *MemoryStore) ListTrendingItems(ctx context.Context, mediaType models.MediaType, limit int) ([]*models.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*models.CatalogItem
	for _, item := range s.items {
		if item.MediaType != mediaType || item.TrendingUpdatedAt == nil {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].TrendingScore != items[j].TrendingScore {
			return items[i].TrendingScore > items[j].TrendingScore
		}
		return items[i].Watchers > items[j].Watchers
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *MemoryStore) ListItemsMissingRatings(ctx context.Context, limit int) ([]*models.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*models.CatalogItem
	for _, item := range s.items {
		if item.IMDBID == "" {
			continue
		}
		if item.PrimaryRating != nil && item.VoteCount != nil && item.SecondaryScore != nil {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	sortByID(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *MemoryStore) ListItemsMissingMetadata(ctx context.Context, limit int) ([]*models.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*models.CatalogItem
	for _, item := range s.items {
		missing := item.TranslatedTitle == "" || item.Overview == "" || item.PosterPath == ""
		if item.MediaType == models.MediaTypeShow && (item.SeasonCount == nil || item.EpisodeCount == nil) {
			missing = true
		}
		if !missing {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	sortByID(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func sortByID(items []*models.CatalogItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}

func (s *MemoryStore) InsertSnapshot(ctx context.Context, snap *models.WatcherSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSnapID++
	snap.ID = s.nextSnapID
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	copied := *snap
	s.snapshots = append(s.snapshots, &copied)
	return nil
}

func (s *MemoryStore) ListRecentSnapshots(ctx context.Context, mediaType models.MediaType, externalID int64, limit int) ([]*models.WatcherSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snaps []*models.WatcherSnapshot
	for _, snap := range s.snapshots {
		if snap.MediaType == mediaType && snap.ExternalID == externalID {
			copied := *snap
			snaps = append(snaps, &copied)
		}
	}
	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
		}
		return snaps[i].ID > snaps[j].ID
	})
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *models.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextJobID++
	job.ID = s.nextJobID
	if job.Status == "" {
		job.Status = models.JobStatusRunning
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id int64) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (s *MemoryStore) ListRecentJobs(ctx context.Context, limit int) ([]*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var jobs []*models.SyncJob
	for _, job := range s.jobs {
		copied := *job
		jobs = append(jobs, &copied)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID > jobs[j].ID })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, job *models.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.jobs[job.ID]
	if !ok {
		return nil
	}
	existing.Status = job.Status
	existing.Stats = job.Stats
	existing.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreateTasks(ctx context.Context, tasks []*models.SyncTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, task := range tasks {
		s.nextTaskID++
		task.ID = s.nextTaskID
		if task.Status == "" {
			task.Status = models.TaskStatusPending
		}
		task.CreatedAt = now
		task.UpdatedAt = now
		copied := *task
		s.tasks[task.ID] = &copied
	}
	return nil
}

func (s *MemoryStore) ClaimPendingTasks(ctx context.Context, types []models.JobType, limit int, reclaimBefore time.Time) ([]*models.SyncTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	typeSet := make(map[models.JobType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var candidates []*models.SyncTask
	for _, task := range s.tasks {
		job, ok := s.jobs[task.JobID]
		if !ok || !typeSet[job.Type] {
			continue
		}
		claimable := task.Status == models.TaskStatusPending ||
			(task.Status == models.TaskStatusProcessing && task.UpdatedAt.Before(reclaimBefore))
		if claimable {
			candidates = append(candidates, task)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	claimed := make([]*models.SyncTask, 0, len(candidates))
	now := time.Now()
	for _, task := range candidates {
		task.Status = models.TaskStatusProcessing
		task.Attempts++
		task.UpdatedAt = now
		copied := *task
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (s *MemoryStore) UpdateTaskStatus(ctx context.Context, taskID int64, status models.TaskStatus, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	task.Status = status
	task.LastError = lastError
	task.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CountTasksByStatus(ctx context.Context, jobID int64) (models.TaskCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts models.TaskCounts
	for _, task := range s.tasks {
		if task.JobID != jobID {
			continue
		}
		switch task.Status {
		case models.TaskStatusPending:
			counts.Pending++
		case models.TaskStatusProcessing:
			counts.Processing++
		case models.TaskStatusDone:
			counts.Done++
		case models.TaskStatusError:
			counts.Error++
		}
	}
	return counts, nil
}

func (s *MemoryStore) UpsertAiring(ctx context.Context, entry *models.AiringEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := airingKey{entry.ExternalID, entry.Season, entry.Episode}
	now := time.Now()

	existing, ok := s.airings[key]
	if !ok {
		s.nextAiringID++
		entry.ID = s.nextAiringID
		entry.CreatedAt = now
		entry.UpdatedAt = now
		copied := *entry
		s.airings[key] = &copied
		return true, nil
	}

	existing.Title = entry.Title
	existing.AirDate = entry.AirDate
	existing.Network = entry.Network
	existing.EntryType = entry.EntryType
	existing.UpdatedAt = now
	entry.ID = existing.ID
	return false, nil
}

func (s *MemoryStore) ListAiringsBetween(ctx context.Context, from, to time.Time) ([]*models.AiringEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.AiringEntry
	for _, e := range s.airings {
		if e.AirDate.Before(from) || e.AirDate.After(to) {
			continue
		}
		copied := *e
		entries = append(entries, &copied)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].AirDate.Before(entries[j].AirDate) })
	return entries, nil
}

func (s *MemoryStore) DeleteAiringsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key, e := range s.airings {
		if e.AirDate.Before(cutoff) {
			delete(s.airings, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) DeleteAiringsOlderThanExcluding(ctx context.Context, cutoff time.Time, keepExternalIDs []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[int64]bool, len(keepExternalIDs))
	for _, id := range keepExternalIDs {
		keep[id] = true
	}

	var deleted int64
	for key, e := range s.airings {
		if e.AirDate.Before(cutoff) && !keep[e.ExternalID] {
			delete(s.airings, key)
			deleted++
		}
	}
	return deleted, nil
}
