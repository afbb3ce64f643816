package trending

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendwatch/trend-monitor/internal/models"
)

func traktTestProvider(srv *httptest.Server) *TraktProvider {
	return NewTraktProviderWithClient(NewClient(ClientConfig{MaxAttempts: 1}, testLogger()), srv.URL, testLogger())
}

func TestTraktGetTrendingList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shows/trending", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Write([]byte(`[
			{"watchers": 500, "show": {"title": "Hot Show", "year": 2024, "ids": {"trakt": 1, "tmdb": 100, "imdb": "tt100"}}},
			{"watchers": 250, "show": {"title": "Warm Show", "year": 2023, "ids": {"trakt": 2}}},
			{"watchers": 99},
			{"watchers": 98, "show": {"title": "No ID", "ids": {}}}
		]`))
	}))
	defer srv.Close()

	entries, err := traktTestProvider(srv).GetTrendingList(context.Background(), models.MediaTypeShow, 2)
	require.NoError(t, err)

	// Entries without an item or without a provider ID are dropped.
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].ExternalID)
	assert.Equal(t, 500, entries[0].Watchers)
	assert.Equal(t, int64(100), entries[0].TMDBID)
	assert.Equal(t, "tt100", entries[0].IMDBID)
	assert.Equal(t, "Hot Show", entries[0].Title)
	assert.Equal(t, 2024, entries[0].Year)
	assert.Equal(t, int64(2), entries[1].ExternalID)
}

func TestTraktGetTrendingListMovies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movies/trending", r.URL.Path)
		w.Write([]byte(`[{"watchers": 42, "movie": {"title": "Big Film", "year": 2025, "ids": {"trakt": 9}}}]`))
	}))
	defer srv.Close()

	entries, err := traktTestProvider(srv).GetTrendingList(context.Background(), models.MediaTypeMovie, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(9), entries[0].ExternalID)
	assert.Equal(t, "Big Film", entries[0].Title)
}

func TestTraktGetWatchedAsOf(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shows/watched/monthly", r.URL.Path)
		assert.Equal(t, "2025-02-01", r.URL.Query().Get("start_at"))
		w.Write([]byte(`[{"watcher_count": 1200, "show": {"title": "Old Favorite", "ids": {"trakt": 5}}}]`))
	}))
	defer srv.Close()

	date := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	entries, err := traktTestProvider(srv).GetWatchedAsOf(context.Background(), models.MediaTypeShow, date, 100)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(5), entries[0].ExternalID)
	assert.Equal(t, 1200, entries[0].Watchers)
}

func TestTraktGetUpcomingEpisodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shows/7/episodes/upcoming", r.URL.Path)
		w.Write([]byte(`[
			{"season": 3, "number": 1, "title": "Premiere", "first_aired": "2025-04-01T01:00:00Z", "network": "AMC"},
			{"season": 3, "number": 2, "title": "No Date Yet"}
		]`))
	}))
	defer srv.Close()

	episodes, err := traktTestProvider(srv).GetUpcomingEpisodes(context.Background(), 7)
	require.NoError(t, err)

	// Episodes without an air date are dropped.
	require.Len(t, episodes, 1)
	assert.Equal(t, 3, episodes[0].Season)
	assert.Equal(t, 1, episodes[0].Episode)
	assert.Equal(t, "AMC", episodes[0].Network)
	assert.Equal(t, time.Date(2025, 4, 1, 1, 0, 0, 0, time.UTC), episodes[0].AirDate)
}

func TestTraktUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := traktTestProvider(srv).GetTrendingList(context.Background(), models.MediaTypeShow, 10)
	require.Error(t, err)
}
