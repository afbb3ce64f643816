package trending

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/cache"
	"github.com/trendwatch/trend-monitor/internal/config"
	"github.com/trendwatch/trend-monitor/internal/db"
	"github.com/trendwatch/trend-monitor/internal/models"
)

const (
	defaultLocale = "en-US"
	defaultRegion = "US"
)

// RunContext carries the shared state of one reconciliation batch: the
// historical baselines, the batch watcher maximum used for score
// normalization, and the per-run memo cache.
type RunContext struct {
	Baselines   *Baselines
	MaxWatchers int
	Cache       *cache.RunCache
	Now         time.Time
}

// Reconciler turns one trending entry into catalog writes: item upsert,
// popularity metrics and a deduplicated watcher snapshot.
type Reconciler struct {
	store    db.Store
	metadata MetadataProvider
	ratings  RatingsProvider
	cfg      *config.SyncConfig
	logger   *logrus.Logger
}

func NewReconciler(store db.Store, metadata MetadataProvider, ratings RatingsProvider, cfg *config.SyncConfig, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		metadata: metadata,
		ratings:  ratings,
		cfg:      cfg,
		logger:   logger,
	}
}

// ProcessEntry reconciles one trending entry against the catalog. It always
// returns an outcome; failures set the outcome's Error rather than aborting
// the batch, and a metadata or ratings fetch failure still lets the
// popularity update through.
func (r *Reconciler) ProcessEntry(ctx context.Context, mediaType models.MediaType, payload models.TaskPayload, externalID int64, run *RunContext) models.ItemOutcome {
	outcome := models.ItemOutcome{ExternalID: externalID}
	if externalID == 0 {
		outcome.Skipped = true
		return outcome
	}

	existing, err := r.store.GetCatalogItem(ctx, mediaType, externalID)
	if err != nil {
		outcome.Error = fmt.Sprintf("lookup failed: %v", err)
		return outcome
	}

	item := r.buildItem(ctx, mediaType, payload, externalID, existing, run)

	now := run.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	item.Watchers = payload.Watchers
	item.TrendingScore = TrendingScore(payload.Watchers, run.MaxWatchers)
	item.TrendingUpdatedAt = &now

	lastSnap, err := r.lastSnapshot(ctx, mediaType, externalID)
	if err != nil {
		outcome.Error = fmt.Sprintf("snapshot lookup failed: %v", err)
		return outcome
	}
	item.WatchersDelta = WatchersDelta(payload.Watchers, lastSnap, run.Baselines, externalID)
	item.Delta3M = Delta3M(payload.Watchers, run.Baselines, externalID)

	created, err := r.store.UpsertCatalogItem(ctx, item)
	if err != nil {
		outcome.Error = fmt.Sprintf("upsert failed: %v", err)
		return outcome
	}
	if created {
		outcome.Added = true
	} else {
		outcome.Updated = true
	}

	// Snapshots are append-only and deduplicated: a new row only when the
	// watcher count moved since the last reading.
	if lastSnap != nil && lastSnap.Watchers == payload.Watchers {
		outcome.SnapshotsUnchanged++
		return outcome
	}
	snap := &models.WatcherSnapshot{
		MediaType:  mediaType,
		ExternalID: externalID,
		Watchers:   payload.Watchers,
		CreatedAt:  now,
	}
	if err := r.store.InsertSnapshot(ctx, snap); err != nil {
		outcome.Error = fmt.Sprintf("snapshot insert failed: %v", err)
		return outcome
	}
	outcome.SnapshotsInserted++
	return outcome
}

// buildItem merges the payload and any fetched metadata over the existing
// record. Fetch failures are logged and leave the corresponding fields empty;
// the store's merge semantics keep previously populated values.
func (r *Reconciler) buildItem(ctx context.Context, mediaType models.MediaType, payload models.TaskPayload, externalID int64, existing *models.CatalogItem, run *RunContext) *models.CatalogItem {
	item := &models.CatalogItem{
		MediaType:  mediaType,
		ExternalID: externalID,
		TMDBID:     payload.TMDBID,
		IMDBID:     payload.IMDBID,
		Title:      payload.Title,
		Year:       payload.Year,
	}

	tmdbID := payload.TMDBID
	if tmdbID == 0 && existing != nil {
		tmdbID = existing.TMDBID
		item.TMDBID = tmdbID
	}
	if tmdbID == 0 || r.metadata == nil {
		return item
	}

	needsMetadata := existing == nil || existing.Overview == ""
	if needsMetadata {
		details, err := cache.Memoize(run.Cache, "details", externalID, func() (*ItemDetails, error) {
			return r.metadata.GetDetails(ctx, tmdbID, mediaType)
		})
		if err != nil {
			r.logger.WithError(err).WithField("external_id", externalID).Warn("Metadata fetch failed")
		} else if details != nil {
			if details.Title != "" {
				item.Title = details.Title
			}
			item.Overview = details.Overview
			item.Tagline = details.Tagline
			item.Status = details.Status
			item.PosterPath = details.PosterPath
			item.BackdropPath = details.BackdropPath
			item.SeasonCount = details.SeasonCount
			item.EpisodeCount = details.EpisodeCount
		}

		translation, err := cache.Memoize(run.Cache, "translation", externalID, func() (*Translation, error) {
			return r.metadata.GetTranslation(ctx, tmdbID, mediaType, defaultLocale)
		})
		if err != nil {
			r.logger.WithError(err).WithField("external_id", externalID).Warn("Translation fetch failed")
		} else if translation != nil && translation.Title != "" {
			item.TranslatedTitle = translation.Title
		}

		providers, err := cache.Memoize(run.Cache, "providers", externalID, func() (string, error) {
			return r.metadata.GetWatchProviders(ctx, tmdbID, mediaType, defaultRegion)
		})
		if err != nil {
			r.logger.WithError(err).WithField("external_id", externalID).Warn("Watch providers fetch failed")
		} else {
			item.WatchProviders = providers
		}
	}

	if item.IMDBID == "" && (existing == nil || existing.IMDBID == "") {
		ids, err := cache.Memoize(run.Cache, "external_ids", externalID, func() (*ExternalIDs, error) {
			return r.metadata.GetExternalIDs(ctx, tmdbID, mediaType)
		})
		if err != nil {
			r.logger.WithError(err).WithField("external_id", externalID).Warn("External IDs fetch failed")
		} else if ids != nil {
			item.IMDBID = ids.IMDBID
		}
	}

	return item
}

// lastSnapshot returns the most recent snapshot or nil when the item has no
// history.
func (r *Reconciler) lastSnapshot(ctx context.Context, mediaType models.MediaType, externalID int64) (*models.WatcherSnapshot, error) {
	snaps, err := r.store.ListRecentSnapshots(ctx, mediaType, externalID, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return snaps[0], nil
}
