package trending

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/batch"
	"github.com/trendwatch/trend-monitor/internal/cache"
	"github.com/trendwatch/trend-monitor/internal/models"
)

// ProcessBatch claims up to limit pending tasks and reconciles them with
// bounded concurrency. Each task settles to done or error individually; a
// failed item never aborts the batch. Stale processing tasks older than the
// reclaim window are picked up again.
func (s *Service) ProcessBatch(ctx context.Context, limit int) (*models.RunStats, error) {
	if limit <= 0 {
		limit = s.cfg.BatchLimit
	}
	reclaimBefore := s.now().Add(-s.cfg.TaskReclaimAfter)

	types := []models.JobType{models.JobTypeTrendingShows, models.JobTypeTrendingMovies}
	tasks, err := s.store.ClaimPendingTasks(ctx, types, limit, reclaimBefore)
	if err != nil {
		return nil, err
	}

	stats := &models.RunStats{}
	if len(tasks) == 0 {
		return stats, nil
	}

	jobTypes, err := s.jobTypesFor(ctx, tasks)
	if err != nil {
		return nil, err
	}

	// One run context per media type: baselines fetched once, the score
	// normalized against the hottest item of this batch, and a fresh memo
	// cache so provider responses are shared across workers but never across
	// runs.
	runs := make(map[models.MediaType]*RunContext)
	for _, t := range tasks {
		mediaType := jobTypes[t.JobID].MediaType()
		run, ok := runs[mediaType]
		if !ok {
			run = &RunContext{
				Baselines: s.baselines.Build(ctx, mediaType, s.now()),
				Cache:     cache.NewRunCache(2 * s.cfg.TrendingLimit),
				Now:       s.now(),
			}
			runs[mediaType] = run
		}
		if t.Payload.Watchers > run.MaxWatchers {
			run.MaxWatchers = t.Payload.Watchers
		}
	}

	results := batch.RunPool(ctx, s.cfg.Concurrency, tasks, func(ctx context.Context, t *models.SyncTask) (models.ItemOutcome, error) {
		mediaType := jobTypes[t.JobID].MediaType()
		return s.reconciler.ProcessEntry(ctx, mediaType, t.Payload, t.ExternalID, runs[mediaType]), nil
	})

	touchedJobs := make(map[int64]struct{})
	for i, res := range results {
		task := tasks[i]
		touchedJobs[task.JobID] = struct{}{}

		outcome := res.Value
		if res.Err != nil {
			outcome = models.ItemOutcome{ExternalID: task.ExternalID, Error: res.Err.Error()}
		}
		stats.Add(outcome)

		status := models.TaskStatusDone
		if outcome.Failed() {
			status = models.TaskStatusError
		}
		if err := s.store.UpdateTaskStatus(ctx, task.ID, status, outcome.Error); err != nil {
			s.logger.WithError(err).WithField("task_id", task.ID).Error("Failed to update task status")
		}
	}

	// Settle any job this batch may have finished.
	for jobID := range touchedJobs {
		if _, err := s.GetJobSummary(ctx, jobID); err != nil {
			s.logger.WithError(err).WithField("job_id", jobID).Error("Failed to settle job")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"processed": stats.Processed,
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
	}).Info("Batch processed")

	return stats, nil
}

// jobTypesFor resolves each claimed task's job type, one store read per
// distinct job.
func (s *Service) jobTypesFor(ctx context.Context, tasks []*models.SyncTask) (map[int64]models.JobType, error) {
	types := make(map[int64]models.JobType)
	for _, t := range tasks {
		if _, ok := types[t.JobID]; ok {
			continue
		}
		job, err := s.store.GetJob(ctx, t.JobID)
		if err != nil {
			return nil, err
		}
		types[t.JobID] = job.Type
	}
	return types, nil
}
