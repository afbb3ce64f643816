package trending

import (
	"context"
	"time"

	"github.com/trendwatch/trend-monitor/internal/models"
)

// SyncService is the boundary the HTTP layer depends on; *Service is the
// production implementation and tests substitute a mock.
type SyncService interface {
	StartSync(ctx context.Context, jobType models.JobType) (*StartSyncResult, error)
	ProcessBatch(ctx context.Context, limit int) (*models.RunStats, error)
	GetJobSummary(ctx context.Context, jobID int64) (*models.JobSummary, error)
	ListJobs(ctx context.Context, limit int) ([]*models.JobSummary, error)
	SyncCalendar(ctx context.Context) (*models.CalendarStats, error)
	PruneCalendar(ctx context.Context) (int64, error)
	BackfillRatings(ctx context.Context) (*models.BackfillStats, error)
	BackfillMetadata(ctx context.Context) (*models.BackfillStats, error)
	ListTrending(ctx context.Context, mediaType models.MediaType, limit int) ([]*TrendingItem, error)
	ListCalendar(ctx context.Context, from, to time.Time) ([]*models.AiringEntry, error)
}

var _ SyncService = (*Service)(nil)
