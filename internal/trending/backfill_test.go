package trending

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendwatch/trend-monitor/internal/config"
	"github.com/trendwatch/trend-monitor/internal/db"
	"github.com/trendwatch/trend-monitor/internal/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func seedItem(t *testing.T, store db.Store, item *models.CatalogItem) {
	t.Helper()
	if item.MediaType == "" {
		item.MediaType = models.MediaTypeMovie
	}
	if item.Title == "" {
		item.Title = "Seeded"
	}
	_, err := store.UpsertCatalogItem(context.Background(), item)
	require.NoError(t, err)
}

func newBackfillService(store db.Store, ratings *stubRatingsProvider, metadata *stubMetadataProvider) *Service {
	cfg := config.DefaultSyncConfig()
	cfg.BackfillBatchSize = 2
	return NewService(store, &stubTrendingProvider{}, metadata, ratings, cfg, testLogger())
}

func TestBackfillRatingsFillsMissingFields(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedItem(t, store, &models.CatalogItem{ExternalID: 1, IMDBID: "tt001"})

	ratings := &stubRatingsProvider{ratings: map[string]*AggregatedRatings{
		"tt001": {PrimaryRating: floatPtr(8.1), VoteCount: intPtr(5000), SecondaryScore: floatPtr(92)},
	}}
	svc := newBackfillService(store, ratings, &stubMetadataProvider{})

	stats, err := svc.BackfillRatings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 1, stats.Updated)

	item, err := store.GetCatalogItem(ctx, models.MediaTypeMovie, 1)
	require.NoError(t, err)
	require.NotNil(t, item.PrimaryRating)
	assert.Equal(t, 8.1, *item.PrimaryRating)
	require.NotNil(t, item.VoteCount)
	assert.Equal(t, 5000, *item.VoteCount)
}

func TestBackfillRatingsNeverOverwritesPopulated(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedItem(t, store, &models.CatalogItem{
		ExternalID:    2,
		IMDBID:        "tt002",
		PrimaryRating: floatPtr(7.7),
	})

	// Provider has a different primary rating and nothing else.
	ratings := &stubRatingsProvider{ratings: map[string]*AggregatedRatings{
		"tt002": {PrimaryRating: floatPtr(1.0), VoteCount: intPtr(10)},
	}}
	svc := newBackfillService(store, ratings, &stubMetadataProvider{})

	_, err := svc.BackfillRatings(ctx)
	require.NoError(t, err)

	item, err := store.GetCatalogItem(ctx, models.MediaTypeMovie, 2)
	require.NoError(t, err)
	// The populated rating is kept; only the missing vote count was filled.
	assert.Equal(t, 7.7, *item.PrimaryRating)
	require.NotNil(t, item.VoteCount)
	assert.Equal(t, 10, *item.VoteCount)
}

func TestBackfillRatingsSkipsAllNilResponses(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedItem(t, store, &models.CatalogItem{ExternalID: 3, IMDBID: "tt003"})

	ratings := &stubRatingsProvider{ratings: map[string]*AggregatedRatings{
		"tt003": {},
	}}
	svc := newBackfillService(store, ratings, &stubMetadataProvider{})

	stats, err := svc.BackfillRatings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Updated)
}

func TestBackfillRatingsRespectsBatchCap(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	for i := int64(1); i <= 5; i++ {
		seedItem(t, store, &models.CatalogItem{ExternalID: i, IMDBID: "tt" + string(rune('0'+i))})
	}

	ratings := &stubRatingsProvider{}
	svc := newBackfillService(store, ratings, &stubMetadataProvider{})

	stats, err := svc.BackfillRatings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, ratings.calls)
}

func TestBackfillRatingsCountsProviderFailures(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedItem(t, store, &models.CatalogItem{ExternalID: 4, IMDBID: "tt004"})

	ratings := &stubRatingsProvider{err: assert.AnError}
	svc := newBackfillService(store, ratings, &stubMetadataProvider{})

	stats, err := svc.BackfillRatings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
}

func TestBackfillMetadataFillsMissingFields(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedItem(t, store, &models.CatalogItem{ExternalID: 5, TMDBID: 1005, PosterPath: "/keep.jpg"})

	metadata := &stubMetadataProvider{details: map[int64]*ItemDetails{
		1005: {Overview: "filled in later", PosterPath: "/new.jpg", Status: "Released"},
	}}
	svc := newBackfillService(store, &stubRatingsProvider{}, metadata)

	stats, err := svc.BackfillMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	item, err := store.GetCatalogItem(ctx, models.MediaTypeMovie, 5)
	require.NoError(t, err)
	assert.Equal(t, "filled in later", item.Overview)
	assert.Equal(t, "Released", item.Status)
	// Already-populated fields are left alone.
	assert.Equal(t, "/keep.jpg", item.PosterPath)
}

func TestBackfillMetadataFillsTranslatedTitle(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedItem(t, store, &models.CatalogItem{
		ExternalID: 7,
		TMDBID:     1007,
		Overview:   "already here",
		PosterPath: "/poster.jpg",
	})

	metadata := &stubMetadataProvider{
		details:     map[int64]*ItemDetails{1007: {Overview: "already here"}},
		translation: &Translation{Title: "Le Titre"},
	}
	svc := newBackfillService(store, &stubRatingsProvider{}, metadata)

	stats, err := svc.BackfillMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 1, stats.Updated)

	item, err := store.GetCatalogItem(ctx, models.MediaTypeMovie, 7)
	require.NoError(t, err)
	assert.Equal(t, "Le Titre", item.TranslatedTitle)

	// With the title filled the item falls out of the backlog.
	stats, err = svc.BackfillMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Scanned)
}

func TestBackfillMetadataSkipsItemsWithoutTMDBID(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedItem(t, store, &models.CatalogItem{ExternalID: 6})

	svc := newBackfillService(store, &stubRatingsProvider{}, &stubMetadataProvider{})

	stats, err := svc.BackfillMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Updated)
}
