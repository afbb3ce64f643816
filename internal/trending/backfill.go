package trending

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/models"
)

// BackfillRatings scans a capped batch of catalog items with no ratings and
// fills them from the ratings provider. Only missing fields are written; a
// provider returning nothing for an item leaves the row untouched.
func (s *Service) BackfillRatings(ctx context.Context) (*models.BackfillStats, error) {
	items, err := s.store.ListItemsMissingRatings(ctx, s.cfg.BackfillBatchSize)
	if err != nil {
		return nil, err
	}

	stats := &models.BackfillStats{}
	for _, item := range items {
		stats.Scanned++
		if item.IMDBID == "" {
			stats.Skipped++
			continue
		}

		ratings, err := s.reconciler.ratings.GetAggregatedRatings(ctx, item.IMDBID, item.MediaType)
		if err != nil {
			s.logger.WithError(err).WithField("imdb_id", item.IMDBID).Warn("Ratings fetch failed")
			stats.Failed++
			continue
		}
		if ratings.PrimaryRating == nil && ratings.VoteCount == nil && ratings.SecondaryScore == nil {
			stats.Skipped++
			continue
		}

		// Fill only what is missing; a populated field is never replaced by
		// a freshly fetched nil.
		if item.PrimaryRating == nil {
			item.PrimaryRating = ratings.PrimaryRating
		}
		if item.VoteCount == nil {
			item.VoteCount = ratings.VoteCount
		}
		if item.SecondaryScore == nil {
			item.SecondaryScore = ratings.SecondaryScore
		}
		if _, err := s.store.UpsertCatalogItem(ctx, item); err != nil {
			s.logger.WithError(err).WithField("external_id", item.ExternalID).Warn("Ratings backfill write failed")
			stats.Failed++
			continue
		}
		stats.Updated++
	}

	s.logBackfill("ratings", stats)
	return stats, nil
}

// BackfillMetadata scans a capped batch of catalog items missing descriptive
// metadata and fills them from the metadata provider.
func (s *Service) BackfillMetadata(ctx context.Context) (*models.BackfillStats, error) {
	items, err := s.store.ListItemsMissingMetadata(ctx, s.cfg.BackfillBatchSize)
	if err != nil {
		return nil, err
	}

	stats := &models.BackfillStats{}
	for _, item := range items {
		stats.Scanned++
		if item.TMDBID == 0 {
			stats.Skipped++
			continue
		}

		details, err := s.reconciler.metadata.GetDetails(ctx, item.TMDBID, item.MediaType)
		if err != nil {
			s.logger.WithError(err).WithField("tmdb_id", item.TMDBID).Warn("Metadata fetch failed")
			stats.Failed++
			continue
		}

		changed := false
		if item.Overview == "" && details.Overview != "" {
			item.Overview = details.Overview
			changed = true
		}
		if item.Tagline == "" && details.Tagline != "" {
			item.Tagline = details.Tagline
			changed = true
		}
		if item.Status == "" && details.Status != "" {
			item.Status = details.Status
			changed = true
		}
		if item.PosterPath == "" && details.PosterPath != "" {
			item.PosterPath = details.PosterPath
			changed = true
		}
		if item.BackdropPath == "" && details.BackdropPath != "" {
			item.BackdropPath = details.BackdropPath
			changed = true
		}
		if item.SeasonCount == nil && details.SeasonCount != nil {
			item.SeasonCount = details.SeasonCount
			changed = true
		}
		if item.EpisodeCount == nil && details.EpisodeCount != nil {
			item.EpisodeCount = details.EpisodeCount
			changed = true
		}

		// The selector also picks up items whose only gap is the localized
		// title, so fetch it here or those rows would be rescanned forever.
		if item.TranslatedTitle == "" {
			translation, err := s.reconciler.metadata.GetTranslation(ctx, item.TMDBID, item.MediaType, defaultLocale)
			if err != nil {
				s.logger.WithError(err).WithField("tmdb_id", item.TMDBID).Warn("Translation fetch failed")
			} else if translation != nil && translation.Title != "" {
				item.TranslatedTitle = translation.Title
				changed = true
			}
		}

		if !changed {
			stats.Skipped++
			continue
		}

		if _, err := s.store.UpsertCatalogItem(ctx, item); err != nil {
			s.logger.WithError(err).WithField("external_id", item.ExternalID).Warn("Metadata backfill write failed")
			stats.Failed++
			continue
		}
		stats.Updated++
	}

	s.logBackfill("metadata", stats)
	return stats, nil
}

func (s *Service) logBackfill(kind string, stats *models.BackfillStats) {
	s.logger.WithFields(logrus.Fields{
		"kind":    kind,
		"scanned": stats.Scanned,
		"updated": stats.Updated,
		"skipped": stats.Skipped,
		"failed":  stats.Failed,
	}).Info("Backfill finished")
}
