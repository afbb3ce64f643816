package db

import (
	"context"
	"time"

	"github.com/trendwatch/trend-monitor/internal/models"
)

// Store defines the interface for database operations. The postgres
// implementation backs production; the memory implementation backs tests.
type Store interface {
	// Catalog operations
	GetCatalogItem(ctx context.Context, mediaType models.MediaType, externalID int64) (*models.CatalogItem, error)
	UpsertCatalogItem(ctx context.Context, item *models.CatalogItem) (created bool, err error)
	ListTrendingItems(ctx context.Context, mediaType models.MediaType, limit int) ([]*models.CatalogItem, error)
	ListItemsMissingRatings(ctx context.Context, limit int) ([]*models.CatalogItem, error)
	ListItemsMissingMetadata(ctx context.Context, limit int) ([]*models.CatalogItem, error)

	// Snapshot operations (append-only)
	InsertSnapshot(ctx context.Context, snap *models.WatcherSnapshot) error
	ListRecentSnapshots(ctx context.Context, mediaType models.MediaType, externalID int64, limit int) ([]*models.WatcherSnapshot, error)

	// Job/task operations
	CreateJob(ctx context.Context, job *models.SyncJob) error
	GetJob(ctx context.Context, id int64) (*models.SyncJob, error)
	ListRecentJobs(ctx context.Context, limit int) ([]*models.SyncJob, error)
	UpdateJob(ctx context.Context, job *models.SyncJob) error
	CreateTasks(ctx context.Context, tasks []*models.SyncTask) error
	// ClaimPendingTasks atomically moves up to limit claimable tasks to
	// processing and increments their attempts. A task is claimable when
	// pending, or when stuck in processing since before reclaimBefore.
	ClaimPendingTasks(ctx context.Context, types []models.JobType, limit int, reclaimBefore time.Time) ([]*models.SyncTask, error)
	UpdateTaskStatus(ctx context.Context, taskID int64, status models.TaskStatus, lastError string) error
	CountTasksByStatus(ctx context.Context, jobID int64) (models.TaskCounts, error)

	// Calendar operations
	UpsertAiring(ctx context.Context, entry *models.AiringEntry) (created bool, err error)
	ListAiringsBetween(ctx context.Context, from, to time.Time) ([]*models.AiringEntry, error)
	DeleteAiringsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteAiringsOlderThanExcluding(ctx context.Context, cutoff time.Time, keepExternalIDs []int64) (int64, error)

	Ping(ctx context.Context) error
}
