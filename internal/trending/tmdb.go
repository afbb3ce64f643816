package trending

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/errors"
	"github.com/trendwatch/trend-monitor/internal/models"
)

// TMDBProvider implements MetadataProvider against a TMDB-shaped API.
type TMDBProvider struct {
	client  *Client
	baseURL string
	apiKey  string
}

func NewTMDBProvider(baseURL, apiKey string, retry RetryConfig, logger *logrus.Logger) *TMDBProvider {
	client := NewClient(ClientConfig{
		MaxAttempts:       retry.MaxAttempts,
		InitialBackoff:    retry.InitialBackoff,
		MaxBackoff:        retry.MaxBackoff,
		RequestsPerSecond: 10,
	}, logger)
	return &TMDBProvider{client: client, baseURL: baseURL, apiKey: apiKey}
}

func tmdbPath(mediaType models.MediaType) string {
	if mediaType == models.MediaTypeMovie {
		return "movie"
	}
	return "tv"
}

type tmdbDetails struct {
	Title            string `json:"title,omitempty"`
	Name             string `json:"name,omitempty"`
	Overview         string `json:"overview"`
	Tagline          string `json:"tagline"`
	Status           string `json:"status"`
	PosterPath       string `json:"poster_path"`
	BackdropPath     string `json:"backdrop_path"`
	NumberOfSeasons  *int   `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes *int   `json:"number_of_episodes,omitempty"`
}

func (p *TMDBProvider) GetDetails(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*ItemDetails, error) {
	url := fmt.Sprintf("%s/%s/%d?api_key=%s", p.baseURL, tmdbPath(mediaType), tmdbID, p.apiKey)

	var raw tmdbDetails
	res := p.client.FetchJSON(ctx, url, &raw)
	if !res.Success {
		return nil, errors.NewUpstreamError("failed to fetch details", res.Err)
	}

	title := raw.Name
	if title == "" {
		title = raw.Title
	}
	return &ItemDetails{
		Title:        title,
		Overview:     raw.Overview,
		Tagline:      raw.Tagline,
		Status:       raw.Status,
		PosterPath:   raw.PosterPath,
		BackdropPath: raw.BackdropPath,
		SeasonCount:  raw.NumberOfSeasons,
		EpisodeCount: raw.NumberOfEpisodes,
	}, nil
}

func (p *TMDBProvider) GetTranslation(ctx context.Context, tmdbID int64, mediaType models.MediaType, locale string) (*Translation, error) {
	url := fmt.Sprintf("%s/%s/%d?api_key=%s&language=%s", p.baseURL, tmdbPath(mediaType), tmdbID, p.apiKey, locale)

	var raw tmdbDetails
	res := p.client.FetchJSON(ctx, url, &raw)
	if !res.Success {
		return nil, errors.NewUpstreamError("failed to fetch translation", res.Err)
	}

	title := raw.Name
	if title == "" {
		title = raw.Title
	}
	return &Translation{
		Title:    title,
		Overview: raw.Overview,
		Tagline:  raw.Tagline,
	}, nil
}

type tmdbWatchProviders struct {
	Results map[string]struct {
		Flatrate []struct {
			ProviderName string `json:"provider_name"`
		} `json:"flatrate"`
	} `json:"results"`
}

func (p *TMDBProvider) GetWatchProviders(ctx context.Context, tmdbID int64, mediaType models.MediaType, region string) (string, error) {
	url := fmt.Sprintf("%s/%s/%d/watch/providers?api_key=%s", p.baseURL, tmdbPath(mediaType), tmdbID, p.apiKey)

	var raw tmdbWatchProviders
	res := p.client.FetchJSON(ctx, url, &raw)
	if !res.Success {
		return "", errors.NewUpstreamError("failed to fetch watch providers", res.Err)
	}

	regional, ok := raw.Results[region]
	if !ok {
		return "", nil
	}
	names := make([]string, 0, len(regional.Flatrate))
	for _, f := range regional.Flatrate {
		names = append(names, f.ProviderName)
	}
	return strings.Join(names, ","), nil
}

type tmdbExternalIDs struct {
	IMDBID string `json:"imdb_id"`
}

func (p *TMDBProvider) GetExternalIDs(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*ExternalIDs, error) {
	url := fmt.Sprintf("%s/%s/%d/external_ids?api_key=%s", p.baseURL, tmdbPath(mediaType), tmdbID, p.apiKey)

	var raw tmdbExternalIDs
	res := p.client.FetchJSON(ctx, url, &raw)
	if !res.Success {
		return nil, errors.NewUpstreamError("failed to fetch external ids", res.Err)
	}

	return &ExternalIDs{IMDBID: raw.IMDBID, TMDBID: tmdbID}, nil
}
