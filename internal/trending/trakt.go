package trending

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/errors"
	"github.com/trendwatch/trend-monitor/internal/models"
)

// TraktProvider implements TrendingProvider against a Trakt-shaped API.
type TraktProvider struct {
	client  *Client
	baseURL string
	logger  *logrus.Logger
}

// NewTraktProvider creates a trending provider. clientID goes into the
// trakt-api-key header on every request.
func NewTraktProvider(baseURL, clientID, token string, retry RetryConfig, logger *logrus.Logger) *TraktProvider {
	client := NewClient(ClientConfig{
		BearerToken: token,
		Headers: map[string]string{
			"Content-Type":      "application/json",
			"trakt-api-version": "2",
			"trakt-api-key":     clientID,
		},
		MaxAttempts:       retry.MaxAttempts,
		InitialBackoff:    retry.InitialBackoff,
		MaxBackoff:        retry.MaxBackoff,
		RequestsPerSecond: 3,
	}, logger)

	return &TraktProvider{client: client, baseURL: baseURL, logger: logger}
}

// NewTraktProviderWithClient is used by tests to inject a preconfigured
// client.
func NewTraktProviderWithClient(client *Client, baseURL string, logger *logrus.Logger) *TraktProvider {
	return &TraktProvider{client: client, baseURL: baseURL, logger: logger}
}

type traktIDs struct {
	Trakt int64  `json:"trakt"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int64  `json:"tmdb,omitempty"`
}

type traktItem struct {
	Title string   `json:"title"`
	Year  int      `json:"year"`
	IDs   traktIDs `json:"ids"`
}

type traktTrendingEntry struct {
	Watchers int        `json:"watchers"`
	Show     *traktItem `json:"show,omitempty"`
	Movie    *traktItem `json:"movie,omitempty"`
}

type traktWatchedEntry struct {
	WatcherCount int        `json:"watcher_count"`
	Show         *traktItem `json:"show,omitempty"`
	Movie        *traktItem `json:"movie,omitempty"`
}

type traktEpisode struct {
	Season     int       `json:"season"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	FirstAired time.Time `json:"first_aired"`
	Network    string    `json:"network,omitempty"`
}

func mediaPath(mediaType models.MediaType) string {
	if mediaType == models.MediaTypeMovie {
		return "movies"
	}
	return "shows"
}

func (p *TraktProvider) GetTrendingList(ctx context.Context, mediaType models.MediaType, limit int) ([]TrendingEntry, error) {
	url := fmt.Sprintf("%s/%s/trending?limit=%d", p.baseURL, mediaPath(mediaType), limit)

	var raw []traktTrendingEntry
	res := p.client.FetchJSON(ctx, url, &raw)
	if !res.Success {
		return nil, errors.NewUpstreamError("failed to fetch trending list", res.Err)
	}

	entries := make([]TrendingEntry, 0, len(raw))
	for _, e := range raw {
		item := e.Show
		if mediaType == models.MediaTypeMovie {
			item = e.Movie
		}
		if item == nil || item.IDs.Trakt == 0 {
			continue
		}
		entries = append(entries, TrendingEntry{
			ExternalID: item.IDs.Trakt,
			Watchers:   e.Watchers,
			TMDBID:     item.IDs.TMDB,
			IMDBID:     item.IDs.IMDB,
			Title:      item.Title,
			Year:       item.Year,
		})
	}
	return entries, nil
}

func (p *TraktProvider) GetWatchedAsOf(ctx context.Context, mediaType models.MediaType, date time.Time, limit int) ([]WatchedEntry, error) {
	url := fmt.Sprintf("%s/%s/watched/monthly?start_at=%s&limit=%d",
		p.baseURL, mediaPath(mediaType), date.Format("2006-01-02"), limit)

	var raw []traktWatchedEntry
	res := p.client.FetchJSON(ctx, url, &raw)
	if !res.Success {
		return nil, errors.NewUpstreamError("failed to fetch watched list", res.Err)
	}

	entries := make([]WatchedEntry, 0, len(raw))
	for _, e := range raw {
		item := e.Show
		if mediaType == models.MediaTypeMovie {
			item = e.Movie
		}
		if item == nil || item.IDs.Trakt == 0 {
			continue
		}
		entries = append(entries, WatchedEntry{
			ExternalID: item.IDs.Trakt,
			Watchers:   e.WatcherCount,
		})
	}
	return entries, nil
}

func (p *TraktProvider) GetUpcomingEpisodes(ctx context.Context, externalID int64) ([]UpcomingEpisode, error) {
	url := fmt.Sprintf("%s/shows/%d/episodes/upcoming", p.baseURL, externalID)

	var raw []traktEpisode
	res := p.client.FetchJSON(ctx, url, &raw)
	if !res.Success {
		return nil, errors.NewUpstreamError("failed to fetch upcoming episodes", res.Err)
	}

	episodes := make([]UpcomingEpisode, 0, len(raw))
	for _, e := range raw {
		if e.FirstAired.IsZero() {
			continue
		}
		episodes = append(episodes, UpcomingEpisode{
			Season:  e.Season,
			Episode: e.Number,
			Title:   e.Title,
			AirDate: e.FirstAired,
			Network: e.Network,
		})
	}
	return episodes, nil
}
