package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/errors"
	"github.com/trendwatch/trend-monitor/internal/models"
	"github.com/trendwatch/trend-monitor/internal/trending"
)

// Scheduler drives the synchronization pipeline on a fixed cadence.
type Scheduler struct {
	cron    *cron.Cron
	service trending.SyncService
	logger  *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(service trending.SyncService, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		logger:  logger,
	}
}

// Start registers the cron entries and kicks off an initial sync so a fresh
// deployment has data before the first scheduled run.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every 6 hours: refresh the trending lists
	_, err := s.cron.AddFunc("0 */6 * * *", func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("failed to add sync job: %w", err)
	}

	// Every 5 minutes: drain pending tasks
	_, err = s.cron.AddFunc("*/5 * * * *", func() {
		s.runProcessBatch()
	})
	if err != nil {
		return fmt.Errorf("failed to add process job: %w", err)
	}

	// Every 12 hours: refresh the airing calendar
	_, err = s.cron.AddFunc("0 */12 * * *", func() {
		s.runCalendarSync()
	})
	if err != nil {
		return fmt.Errorf("failed to add calendar job: %w", err)
	}

	// Daily: prune stale calendar entries
	_, err = s.cron.AddFunc("0 4 * * *", func() {
		s.runPrune()
	})
	if err != nil {
		return fmt.Errorf("failed to add prune job: %w", err)
	}

	// Hourly: backfill missing ratings and metadata
	_, err = s.cron.AddFunc("0 * * * *", func() {
		s.runBackfills()
	})
	if err != nil {
		return fmt.Errorf("failed to add backfill job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Run an initial sync and drain immediately
	go func() {
		s.runSync()
		s.runProcessBatch()
	}()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runSync starts one job per media type. An unreachable provider is logged
// and retried on the next tick rather than treated as fatal.
func (s *Scheduler) runSync() {
	ctx := context.Background()
	for _, jobType := range []models.JobType{models.JobTypeTrendingShows, models.JobTypeTrendingMovies} {
		result, err := s.service.StartSync(ctx, jobType)
		if err != nil {
			entry := s.logger.WithError(err).WithField("type", jobType)
			if errors.IsProviderUnreachable(err) {
				entry.Warn("Trending provider unreachable, will retry next tick")
			} else {
				entry.Error("Sync start failed")
			}
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"type":   jobType,
			"job_id": result.JobID,
			"tasks":  result.TasksQueued,
		}).Info("Scheduled sync started")
	}
}

func (s *Scheduler) runProcessBatch() {
	stats, err := s.service.ProcessBatch(context.Background(), 0)
	if err != nil {
		s.logger.WithError(err).Error("Batch processing failed")
		return
	}
	if stats.Processed == 0 {
		s.logger.Debug("No pending tasks to process")
	}
}

func (s *Scheduler) runCalendarSync() {
	if _, err := s.service.SyncCalendar(context.Background()); err != nil {
		s.logger.WithError(err).Error("Calendar sync failed")
	}
}

func (s *Scheduler) runPrune() {
	if _, err := s.service.PruneCalendar(context.Background()); err != nil {
		s.logger.WithError(err).Error("Calendar prune failed")
	}
}

func (s *Scheduler) runBackfills() {
	ctx := context.Background()
	if _, err := s.service.BackfillRatings(ctx); err != nil {
		s.logger.WithError(err).Error("Ratings backfill failed")
	}
	if _, err := s.service.BackfillMetadata(ctx); err != nil {
		s.logger.WithError(err).Error("Metadata backfill failed")
	}
}
