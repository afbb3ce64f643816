package trending

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendwatch/trend-monitor/internal/models"
)

func TestMonthStartDate(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		monthsBack int
		want       time.Time
	}{
		{
			name:       "current month",
			now:        time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
			monthsBack: 0,
			want:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "one month back crosses year boundary",
			now:        time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			monthsBack: 1,
			want:       time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "five months back crosses year boundary",
			now:        time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC),
			monthsBack: 5,
			want:       time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "same year",
			now:        time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
			monthsBack: 3,
			want:       time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MonthStartDate(tt.now, tt.monthsBack))
		})
	}
}

type watchedFunc func(ctx context.Context, mediaType models.MediaType, date time.Time, limit int) ([]WatchedEntry, error)

type stubTrendingProvider struct {
	trending []TrendingEntry
	watched  watchedFunc
	episodes map[int64][]UpcomingEpisode

	trendingErr error
	episodesErr error
}

func (p *stubTrendingProvider) GetTrendingList(ctx context.Context, mediaType models.MediaType, limit int) ([]TrendingEntry, error) {
	if p.trendingErr != nil {
		return nil, p.trendingErr
	}
	return p.trending, nil
}

func (p *stubTrendingProvider) GetWatchedAsOf(ctx context.Context, mediaType models.MediaType, date time.Time, limit int) ([]WatchedEntry, error) {
	if p.watched == nil {
		return nil, nil
	}
	return p.watched(ctx, mediaType, date, limit)
}

func (p *stubTrendingProvider) GetUpcomingEpisodes(ctx context.Context, externalID int64) ([]UpcomingEpisode, error) {
	if p.episodesErr != nil {
		return nil, p.episodesErr
	}
	return p.episodes[externalID], nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestBaselineBuilderFetchesSixMonths(t *testing.T) {
	var dates []time.Time
	provider := &stubTrendingProvider{
		watched: func(ctx context.Context, mediaType models.MediaType, date time.Time, limit int) ([]WatchedEntry, error) {
			dates = append(dates, date)
			return []WatchedEntry{{ExternalID: 100, Watchers: int(date.Month())}}, nil
		},
	}

	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	baselines := NewBaselineBuilder(provider, 100, testLogger()).Build(context.Background(), models.MediaTypeShow, now)

	require.Len(t, dates, 6)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), dates[5])

	w, ok := baselines.Watchers(1, 100)
	require.True(t, ok)
	assert.Equal(t, 2, w) // February

	w, ok = baselines.Watchers(3, 100)
	require.True(t, ok)
	assert.Equal(t, 12, w) // December
}

func TestBaselineBuilderToleratesFailures(t *testing.T) {
	provider := &stubTrendingProvider{
		watched: func(ctx context.Context, mediaType models.MediaType, date time.Time, limit int) ([]WatchedEntry, error) {
			return nil, fmt.Errorf("provider down")
		},
	}

	baselines := NewBaselineBuilder(provider, 100, testLogger()).Build(context.Background(), models.MediaTypeShow, time.Now())

	for i := 0; i < 6; i++ {
		_, ok := baselines.Watchers(i, 1)
		assert.False(t, ok)
	}
}

func TestBaselinesWatchersOutOfRange(t *testing.T) {
	b := &Baselines{}
	_, ok := b.Watchers(-1, 1)
	assert.False(t, ok)
	_, ok = b.Watchers(6, 1)
	assert.False(t, ok)

	var nilBaselines *Baselines
	_, ok = nilBaselines.Watchers(1, 1)
	assert.False(t, ok)
}
