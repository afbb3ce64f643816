package trending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendwatch/trend-monitor/internal/db"
	"github.com/trendwatch/trend-monitor/internal/models"
)

func seedTrendingShow(t *testing.T, store db.Store, externalID int64) {
	t.Helper()
	now := time.Now().UTC()
	_, err := store.UpsertCatalogItem(context.Background(), &models.CatalogItem{
		MediaType:         models.MediaTypeShow,
		ExternalID:        externalID,
		Title:             "Seeded Show",
		TrendingScore:     80,
		Watchers:          100,
		TrendingUpdatedAt: &now,
	})
	require.NoError(t, err)
}

func TestSyncCalendarUpsertsEpisodes(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	airDate := time.Date(2025, 3, 20, 21, 0, 0, 0, time.UTC)
	provider := &stubTrendingProvider{
		episodes: map[int64][]UpcomingEpisode{
			1: {
				{Season: 2, Episode: 5, Title: "The Heist", AirDate: airDate, Network: "HBO"},
				{Season: 2, Episode: 6, Title: "The Fallout", AirDate: airDate.AddDate(0, 0, 7)},
			},
		},
	}
	svc := newTestService(store, provider)
	seedTrendingShow(t, store, 1)

	stats, err := svc.SyncCalendar(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 0, stats.Updated)

	// Re-running with a shifted air date updates in place instead of
	// duplicating.
	provider.episodes[1][0].AirDate = airDate.AddDate(0, 0, 1)
	stats, err = svc.SyncCalendar(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Inserted)
	assert.Equal(t, 2, stats.Updated)

	entries, err := store.ListAiringsBetween(ctx, airDate.AddDate(0, 0, -1), airDate.AddDate(0, 0, 14))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, airDate.AddDate(0, 0, 1), entries[0].AirDate)
}

func TestSyncCalendarToleratesPerShowFailures(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	provider := &stubTrendingProvider{episodesErr: assert.AnError}
	svc := newTestService(store, provider)
	seedTrendingShow(t, store, 1)

	stats, err := svc.SyncCalendar(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
}

func TestPruneCalendarAgeBoundaries(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	svc := newTestService(store, &stubTrendingProvider{})
	now := svc.now()

	ages := []struct {
		title string
		days  int
	}{
		{"fresh", 29},
		{"boundary", 30},
		{"stale", 31},
	}
	for i, a := range ages {
		_, err := store.UpsertAiring(ctx, &models.AiringEntry{
			ExternalID: int64(i + 1),
			Season:     1,
			Episode:    1,
			Title:      a.title,
			AirDate:    now.AddDate(0, 0, -a.days),
		})
		require.NoError(t, err)
	}

	deleted, err := svc.PruneCalendar(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err := store.ListAiringsBetween(ctx, now.AddDate(0, 0, -60), now)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	titles := []string{entries[0].Title, entries[1].Title}
	assert.Contains(t, titles, "fresh")
	// An entry aged exactly at the cutoff survives.
	assert.Contains(t, titles, "boundary")
}

func TestPruneCalendarKeepsTrendingShows(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	svc := newTestService(store, &stubTrendingProvider{})
	now := svc.now()

	seedTrendingShow(t, store, 1)
	for _, externalID := range []int64{1, 2} {
		_, err := store.UpsertAiring(ctx, &models.AiringEntry{
			ExternalID: externalID,
			Season:     1,
			Episode:    1,
			AirDate:    now.AddDate(0, 0, -45),
		})
		require.NoError(t, err)
	}

	deleted, err := svc.PruneCalendar(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err := store.ListAiringsBetween(ctx, now.AddDate(0, 0, -60), now)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ExternalID)
}
