package trending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendwatch/trend-monitor/internal/models"
)

func TestTrendingScore(t *testing.T) {
	tests := []struct {
		name        string
		watchers    int
		maxWatchers int
		want        int
	}{
		{"hottest item", 500, 500, 100},
		{"half", 250, 500, 50},
		{"rounds up", 333, 1000, 33},
		{"rounds to nearest", 335, 1000, 34},
		{"zero max", 10, 0, 0},
		{"zero watchers", 0, 500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrendingScore(tt.watchers, tt.maxWatchers))
		})
	}
}

func TestWatchersDeltaPrefersLastSnapshot(t *testing.T) {
	baselines := &Baselines{}
	baselines.months[1] = map[int64]int{42: 100}

	snap := &models.WatcherSnapshot{ExternalID: 42, Watchers: 180}
	d := WatchersDelta(200, snap, baselines, 42)
	require.NotNil(t, d)
	assert.Equal(t, 20, *d)
}

func TestWatchersDeltaFallsBackToBaseline(t *testing.T) {
	baselines := &Baselines{}
	baselines.months[1] = map[int64]int{42: 150}

	d := WatchersDelta(200, nil, baselines, 42)
	require.NotNil(t, d)
	assert.Equal(t, 50, *d)
}

func TestWatchersDeltaNilWithoutHistory(t *testing.T) {
	assert.Nil(t, WatchersDelta(200, nil, &Baselines{}, 42))
	assert.Nil(t, WatchersDelta(200, nil, nil, 42))
}

func TestDelta3M(t *testing.T) {
	baselines := &Baselines{}
	baselines.months[3] = map[int64]int{7: 60}

	d := Delta3M(100, baselines, 7)
	require.NotNil(t, d)
	assert.Equal(t, 40, *d)

	assert.Nil(t, Delta3M(100, baselines, 8))
}

func TestBuildSparklineReversesToOldestFirst(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	// Newest first, as the store returns them.
	snaps := []*models.WatcherSnapshot{
		{Watchers: 300, CreatedAt: base.Add(48 * time.Hour)},
		{Watchers: 200, CreatedAt: base.Add(24 * time.Hour)},
		{Watchers: 100, CreatedAt: base},
	}

	line := BuildSparkline(snaps)
	require.Len(t, line.Points, 3)
	assert.Equal(t, 100, line.Points[0].Watchers)
	assert.Equal(t, 200, line.Points[1].Watchers)
	assert.Equal(t, 300, line.Points[2].Watchers)
	assert.True(t, line.Points[0].At.Before(line.Points[2].At))
}

func TestBuildSparklineEmpty(t *testing.T) {
	line := BuildSparkline(nil)
	assert.Empty(t, line.Points)
}
