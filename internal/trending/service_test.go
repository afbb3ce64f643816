package trending

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendwatch/trend-monitor/internal/config"
	"github.com/trendwatch/trend-monitor/internal/db"
	"github.com/trendwatch/trend-monitor/internal/errors"
	"github.com/trendwatch/trend-monitor/internal/models"
)

type stubMetadataProvider struct {
	details     map[int64]*ItemDetails
	detailsErr  error
	translation *Translation
	providers   string
	externalIDs map[int64]string
}

func (p *stubMetadataProvider) GetDetails(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*ItemDetails, error) {
	if p.detailsErr != nil {
		return nil, p.detailsErr
	}
	if d, ok := p.details[tmdbID]; ok {
		return d, nil
	}
	return &ItemDetails{Overview: "an overview"}, nil
}

func (p *stubMetadataProvider) GetTranslation(ctx context.Context, tmdbID int64, mediaType models.MediaType, locale string) (*Translation, error) {
	if p.translation != nil {
		return p.translation, nil
	}
	return &Translation{}, nil
}

func (p *stubMetadataProvider) GetWatchProviders(ctx context.Context, tmdbID int64, mediaType models.MediaType, region string) (string, error) {
	return p.providers, nil
}

func (p *stubMetadataProvider) GetExternalIDs(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*ExternalIDs, error) {
	return &ExternalIDs{IMDBID: p.externalIDs[tmdbID], TMDBID: tmdbID}, nil
}

type stubRatingsProvider struct {
	ratings map[string]*AggregatedRatings
	err     error
	calls   int
}

func (p *stubRatingsProvider) GetAggregatedRatings(ctx context.Context, imdbID string, mediaType models.MediaType) (*AggregatedRatings, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if r, ok := p.ratings[imdbID]; ok {
		return r, nil
	}
	return &AggregatedRatings{}, nil
}

func newTestService(store db.Store, provider *stubTrendingProvider) *Service {
	cfg := config.DefaultSyncConfig()
	cfg.ClientInitialBackoff = time.Millisecond
	svc := NewService(store, provider, &stubMetadataProvider{}, &stubRatingsProvider{}, cfg, testLogger())
	fixed := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc
}

func trendingEntries(watchers ...int) []TrendingEntry {
	entries := make([]TrendingEntry, 0, len(watchers))
	for i, w := range watchers {
		entries = append(entries, TrendingEntry{
			ExternalID: int64(i + 1),
			Watchers:   w,
			TMDBID:     int64(1000 + i),
			Title:      fmt.Sprintf("Show %d", i+1),
			Year:       2020 + i,
		})
	}
	return entries
}

func TestStartSyncEnqueuesTasks(t *testing.T) {
	store := db.NewMemoryStore()
	provider := &stubTrendingProvider{trending: trendingEntries(500, 250, 100)}
	svc := newTestService(store, provider)

	result, err := svc.StartSync(context.Background(), models.JobTypeTrendingShows)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TasksQueued)

	summary, err := svc.GetJobSummary(context.Background(), result.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, summary.Job.Status)
	assert.Equal(t, 3, summary.Counts.Pending)
}

func TestStartSyncProviderUnreachable(t *testing.T) {
	store := db.NewMemoryStore()
	provider := &stubTrendingProvider{trendingErr: fmt.Errorf("connection refused")}
	svc := newTestService(store, provider)

	_, err := svc.StartSync(context.Background(), models.JobTypeTrendingShows)
	require.Error(t, err)
	assert.True(t, errors.IsProviderUnreachable(err))

	// No job row was written before the fetch succeeded.
	jobs, err := store.ListRecentJobs(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestStartSyncRejectsUnknownType(t *testing.T) {
	svc := newTestService(db.NewMemoryStore(), &stubTrendingProvider{})
	_, err := svc.StartSync(context.Background(), models.JobType("bogus"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestProcessBatchEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	provider := &stubTrendingProvider{trending: trendingEntries(500, 250, 100)}
	svc := newTestService(store, provider)

	result, err := svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)

	stats, err := svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 3, stats.Added)
	assert.Equal(t, 3, stats.SnapshotsInserted)

	// The job settles to done once every task is terminal.
	summary, err := svc.GetJobSummary(ctx, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, summary.Job.Status)
	assert.Equal(t, 3, summary.Counts.Done)

	// Scores are normalized against the hottest item of the batch.
	item, err := store.GetCatalogItem(ctx, models.MediaTypeShow, 1)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 100, item.TrendingScore)
	assert.Equal(t, 500, item.Watchers)

	item, err = store.GetCatalogItem(ctx, models.MediaTypeShow, 2)
	require.NoError(t, err)
	assert.Equal(t, 50, item.TrendingScore)

	item, err = store.GetCatalogItem(ctx, models.MediaTypeShow, 3)
	require.NoError(t, err)
	assert.Equal(t, 20, item.TrendingScore)
	assert.Equal(t, "an overview", item.Overview)
}

func TestProcessBatchDeduplicatesSnapshots(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	provider := &stubTrendingProvider{trending: trendingEntries(500)}
	svc := newTestService(store, provider)

	_, err := svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)
	stats, err := svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SnapshotsInserted)

	// Same watcher count again: no new snapshot row.
	_, err = svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)
	stats, err = svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SnapshotsInserted)
	assert.Equal(t, 1, stats.SnapshotsUnchanged)

	// Changed watcher count: a second row appears.
	provider.trending = trendingEntries(600)
	_, err = svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)
	stats, err = svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SnapshotsInserted)

	snaps, err := store.ListRecentSnapshots(ctx, models.MediaTypeShow, 1, 10)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestProcessBatchComputesWatchersDelta(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	provider := &stubTrendingProvider{trending: trendingEntries(100)}
	svc := newTestService(store, provider)

	_, err := svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)
	_, err = svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)

	provider.trending = trendingEntries(150)
	_, err = svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)
	_, err = svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)

	item, err := store.GetCatalogItem(ctx, models.MediaTypeShow, 1)
	require.NoError(t, err)
	require.NotNil(t, item.WatchersDelta)
	assert.Equal(t, 50, *item.WatchersDelta)
}

func TestProcessBatchUsesBaselineDeltas(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	provider := &stubTrendingProvider{
		trending: trendingEntries(200),
		watched: func(ctx context.Context, mediaType models.MediaType, date time.Time, limit int) ([]WatchedEntry, error) {
			return []WatchedEntry{{ExternalID: 1, Watchers: 120}}, nil
		},
	}
	svc := newTestService(store, provider)

	_, err := svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)
	_, err = svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)

	item, err := store.GetCatalogItem(ctx, models.MediaTypeShow, 1)
	require.NoError(t, err)
	// No snapshot history yet, so the one-month baseline backs the delta.
	require.NotNil(t, item.WatchersDelta)
	assert.Equal(t, 80, *item.WatchersDelta)
	require.NotNil(t, item.Delta3M)
	assert.Equal(t, 80, *item.Delta3M)
}

func TestConcurrentProcessBatchClaimsEachTaskOnce(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	watchers := make([]int, 20)
	for i := range watchers {
		watchers[i] = 100 + i
	}
	provider := &stubTrendingProvider{trending: trendingEntries(watchers...)}
	svc := newTestService(store, provider)

	result, err := svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)

	var wg sync.WaitGroup
	totals := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			stats, err := svc.ProcessBatch(ctx, 100)
			assert.NoError(t, err)
			totals[slot] = stats.Processed
		}(i)
	}
	wg.Wait()

	// Every task processed exactly once across both batches.
	assert.Equal(t, 20, totals[0]+totals[1])

	summary, err := svc.GetJobSummary(ctx, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Counts.Done)
	assert.Equal(t, models.JobStatusDone, summary.Job.Status)
}

func TestProcessBatchReclaimsStaleTasks(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	provider := &stubTrendingProvider{trending: trendingEntries(300)}
	svc := newTestService(store, provider)

	_, err := svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)

	// Claim the task and abandon it.
	claimed, err := store.ClaimPendingTasks(ctx, []models.JobType{models.JobTypeTrendingShows}, 10, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// A fresh batch with the reclaim window in the past picks it back up.
	svc.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	stats, err := svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)

	tasks, err := store.ClaimPendingTasks(ctx, []models.JobType{models.JobTypeTrendingShows}, 10, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

// failingStore wraps the memory store and fails every catalog write.
type failingStore struct {
	db.Store
}

func (s *failingStore) UpsertCatalogItem(ctx context.Context, item *models.CatalogItem) (bool, error) {
	return false, fmt.Errorf("disk full")
}

func TestJobFailsOnlyWhenNothingSucceeded(t *testing.T) {
	ctx := context.Background()
	provider := &stubTrendingProvider{trending: trendingEntries(500, 250)}
	store := &failingStore{Store: db.NewMemoryStore()}
	svc := newTestService(store, provider)

	result, err := svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)

	stats, err := svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 0, stats.Succeeded)

	summary, err := svc.GetJobSummary(ctx, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, summary.Job.Status)
	assert.Equal(t, 2, summary.Counts.Error)
}

func TestPartialFailureStillSettlesDone(t *testing.T) {
	ctx := context.Background()
	provider := &stubTrendingProvider{trending: trendingEntries(500, 250)}
	memStore := db.NewMemoryStore()
	store := &flakyStore{Store: memStore, failExternalID: 2}
	svc := newTestService(store, provider)

	result, err := svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)

	stats, err := svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)

	summary, err := svc.GetJobSummary(ctx, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, summary.Job.Status)
	assert.Equal(t, 1, summary.Counts.Done)
	assert.Equal(t, 1, summary.Counts.Error)
}

// flakyStore fails writes for one external ID and passes the rest through.
type flakyStore struct {
	db.Store
	failExternalID int64
}

func (s *flakyStore) UpsertCatalogItem(ctx context.Context, item *models.CatalogItem) (bool, error) {
	if item.ExternalID == s.failExternalID {
		return false, fmt.Errorf("write conflict")
	}
	return s.Store.UpsertCatalogItem(ctx, item)
}

func TestListTrendingAttachesSparklines(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	provider := &stubTrendingProvider{trending: trendingEntries(500, 250)}
	svc := newTestService(store, provider)

	_, err := svc.StartSync(ctx, models.JobTypeTrendingShows)
	require.NoError(t, err)
	_, err = svc.ProcessBatch(ctx, 10)
	require.NoError(t, err)

	items, err := svc.ListTrending(ctx, models.MediaTypeShow, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Ranked by score, hottest first.
	assert.Equal(t, int64(1), items[0].ExternalID)
	assert.Equal(t, 100, items[0].TrendingScore)
	require.Len(t, items[0].Sparkline.Points, 1)
	assert.Equal(t, 500, items[0].Sparkline.Points[0].Watchers)
}
