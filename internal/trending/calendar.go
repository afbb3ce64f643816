package trending

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/models"
)

// SyncCalendar refreshes airing entries for every currently trending show.
// Each upcoming episode upserts on its (external_id, season, episode) key, so
// re-running is idempotent and air date changes overwrite in place.
func (s *Service) SyncCalendar(ctx context.Context) (*models.CalendarStats, error) {
	shows, err := s.store.ListTrendingItems(ctx, models.MediaTypeShow, s.cfg.TrendingLimit)
	if err != nil {
		return nil, err
	}

	stats := &models.CalendarStats{}
	for _, show := range shows {
		episodes, err := s.trending.GetUpcomingEpisodes(ctx, show.ExternalID)
		if err != nil {
			s.logger.WithError(err).WithField("external_id", show.ExternalID).Warn("Failed to fetch upcoming episodes")
			continue
		}
		for _, ep := range episodes {
			entry := &models.AiringEntry{
				ExternalID: show.ExternalID,
				Season:     ep.Season,
				Episode:    ep.Episode,
				Title:      ep.Title,
				AirDate:    ep.AirDate,
				Network:    ep.Network,
				EntryType:  "episode",
			}
			created, err := s.store.UpsertAiring(ctx, entry)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"external_id": show.ExternalID,
					"season":      ep.Season,
					"episode":     ep.Episode,
				}).Warn("Failed to upsert airing entry")
				continue
			}
			stats.Processed++
			if created {
				stats.Inserted++
			} else {
				stats.Updated++
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"processed": stats.Processed,
		"inserted":  stats.Inserted,
		"updated":   stats.Updated,
	}).Info("Calendar synchronized")

	return stats, nil
}

// PruneCalendar deletes airing entries that aired strictly before the
// retention cutoff, keeping entries of shows still on the trending list so
// their recent history survives a cold streak in the feed. An entry aged
// exactly at the cutoff is retained.
func (s *Service) PruneCalendar(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -s.cfg.AiringRetentionDays)

	shows, err := s.store.ListTrendingItems(ctx, models.MediaTypeShow, s.cfg.TrendingLimit)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to list trending shows for prune, pruning unconditionally")
		return s.pruneAll(ctx, cutoff)
	}
	keep := make([]int64, 0, len(shows))
	for _, show := range shows {
		keep = append(keep, show.ExternalID)
	}
	if len(keep) == 0 {
		return s.pruneAll(ctx, cutoff)
	}

	deleted, err := s.store.DeleteAiringsOlderThanExcluding(ctx, cutoff, keep)
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{
		"deleted": deleted,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("Stale airing entries pruned")
	return deleted, nil
}

func (s *Service) pruneAll(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.store.DeleteAiringsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.WithField("deleted", deleted).Info("Stale airing entries pruned")
	return deleted, nil
}

// ListCalendar returns airing entries between two dates, ordered by air
// date.
func (s *Service) ListCalendar(ctx context.Context, from, to time.Time) ([]*models.AiringEntry, error) {
	return s.store.ListAiringsBetween(ctx, from, to)
}
