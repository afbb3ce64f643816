package trending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/config"
	"github.com/trendwatch/trend-monitor/internal/db"
	"github.com/trendwatch/trend-monitor/internal/errors"
	"github.com/trendwatch/trend-monitor/internal/models"
)

// Service coordinates the synchronization pipeline: job creation, batch
// processing, calendar upkeep and backfills.
type Service struct {
	store      db.Store
	trending   TrendingProvider
	reconciler *Reconciler
	baselines  *BaselineBuilder
	cfg        *config.SyncConfig
	logger     *logrus.Logger

	// now is swapped in tests for deterministic timestamps.
	now func() time.Time
}

// NewService wires the pipeline together.
func NewService(store db.Store, trending TrendingProvider, metadata MetadataProvider, ratings RatingsProvider, cfg *config.SyncConfig, logger *logrus.Logger) *Service {
	if cfg == nil {
		cfg = config.DefaultSyncConfig()
	}
	return &Service{
		store:      store,
		trending:   trending,
		reconciler: NewReconciler(store, metadata, ratings, cfg, logger),
		baselines:  NewBaselineBuilder(trending, cfg.TrendingLimit, logger),
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// StartSyncResult reports what a sync kickoff enqueued.
type StartSyncResult struct {
	JobID       int64 `json:"job_id"`
	TasksQueued int   `json:"tasks_queued"`
}

// StartSync fetches the current trending list and enqueues one task per
// entry under a new job. The trending fetch happens before any rows are
// written, so an unreachable provider creates no job at all.
func (s *Service) StartSync(ctx context.Context, jobType models.JobType) (*StartSyncResult, error) {
	if !jobType.Valid() {
		return nil, errors.NewValidationError("unknown job type: "+string(jobType), nil)
	}

	entries, err := s.trending.GetTrendingList(ctx, jobType.MediaType(), s.cfg.TrendingLimit)
	if err != nil {
		return nil, errors.NewProviderUnreachableError("trending", err)
	}

	job := &models.SyncJob{
		Type:   jobType,
		Status: models.JobStatusRunning,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, errors.NewInternalError("failed to create sync job", err)
	}

	tasks := make([]*models.SyncTask, 0, len(entries))
	for _, e := range entries {
		payload := models.TaskPayload{
			Watchers: e.Watchers,
			TMDBID:   e.TMDBID,
			IMDBID:   e.IMDBID,
			Title:    e.Title,
			Year:     e.Year,
		}
		if err := payload.Validate(); err != nil {
			s.logger.WithError(err).WithField("external_id", e.ExternalID).Warn("Skipping invalid trending entry")
			continue
		}
		tasks = append(tasks, &models.SyncTask{
			JobID:      job.ID,
			ExternalID: e.ExternalID,
			Payload:    payload,
			Status:     models.TaskStatusPending,
		})
	}
	if len(tasks) > 0 {
		if err := s.store.CreateTasks(ctx, tasks); err != nil {
			return nil, errors.NewInternalError("failed to create sync tasks", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"type":   jobType,
		"tasks":  len(tasks),
	}).Info("Sync job started")

	return &StartSyncResult{JobID: job.ID, TasksQueued: len(tasks)}, nil
}

// GetJobSummary returns one job with its derived task counts, flipping the
// job to a terminal status when every task has settled.
func (s *Service) GetJobSummary(ctx context.Context, jobID int64) (*models.JobSummary, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("sync job %d not found", jobID), nil)
	}
	return s.summarize(ctx, job)
}

// ListJobs returns recent jobs, most recent first, each with derived counts.
func (s *Service) ListJobs(ctx context.Context, limit int) ([]*models.JobSummary, error) {
	jobs, err := s.store.ListRecentJobs(ctx, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]*models.JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summary, err := s.summarize(ctx, job)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// summarize derives the job's status from its task counts. Status is a read
// side effect: a running job with all tasks settled flips to done, or to
// failed when not a single task succeeded.
func (s *Service) summarize(ctx context.Context, job *models.SyncJob) (*models.JobSummary, error) {
	counts, err := s.store.CountTasksByStatus(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	if job.Status == models.JobStatusRunning && counts.Total() > 0 && counts.Settled() {
		if counts.Done == 0 {
			job.Status = models.JobStatusFailed
		} else {
			job.Status = models.JobStatusDone
		}
		stats, _ := json.Marshal(counts)
		job.Stats = stats
		if err := s.store.UpdateJob(ctx, job); err != nil {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"job_id": job.ID,
			"status": job.Status,
		}).Info("Sync job settled")
	}

	return &models.JobSummary{Job: *job, Counts: counts}, nil
}
