package trending

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/errors"
	"github.com/trendwatch/trend-monitor/internal/models"
)

// OMDBProvider implements RatingsProvider against an OMDb-shaped API. OMDb
// reports missing values as the literal string "N/A"; those normalize to nil
// fields rather than errors so a sparse response still counts as a success.
type OMDBProvider struct {
	client  *Client
	baseURL string
	apiKey  string
}

func NewOMDBProvider(baseURL, apiKey string, retry RetryConfig, logger *logrus.Logger) *OMDBProvider {
	client := NewClient(ClientConfig{
		MaxAttempts:       retry.MaxAttempts,
		InitialBackoff:    retry.InitialBackoff,
		MaxBackoff:        retry.MaxBackoff,
		RequestsPerSecond: 2,
	}, logger)
	return &OMDBProvider{client: client, baseURL: baseURL, apiKey: apiKey}
}

// NewOMDBProviderWithClient is used by tests to inject a preconfigured
// client.
func NewOMDBProviderWithClient(client *Client, baseURL, apiKey string) *OMDBProvider {
	return &OMDBProvider{client: client, baseURL: baseURL, apiKey: apiKey}
}

type omdbRating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type omdbResponse struct {
	Response   string       `json:"Response"`
	Error      string       `json:"Error,omitempty"`
	IMDBRating string       `json:"imdbRating"`
	IMDBVotes  string       `json:"imdbVotes"`
	Ratings    []omdbRating `json:"Ratings"`
}

func (p *OMDBProvider) GetAggregatedRatings(ctx context.Context, imdbID string, mediaType models.MediaType) (*AggregatedRatings, error) {
	omdbType := "series"
	if mediaType == models.MediaTypeMovie {
		omdbType = "movie"
	}
	url := fmt.Sprintf("%s/?apikey=%s&i=%s&type=%s", p.baseURL, p.apiKey, imdbID, omdbType)

	var raw omdbResponse
	res := p.client.FetchJSON(ctx, url, &raw)
	if !res.Success {
		return nil, errors.NewUpstreamError("failed to fetch ratings", res.Err)
	}
	if raw.Response != "True" {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no ratings for %s: %s", imdbID, raw.Error), nil)
	}

	return &AggregatedRatings{
		PrimaryRating:  parseOMDBRating(raw.IMDBRating),
		VoteCount:      parseOMDBVotes(raw.IMDBVotes),
		SecondaryScore: parseRottenTomatoes(raw.Ratings),
	}, nil
}

// parseOMDBRating parses "8.5" into a float pointer; "N/A" and garbage are
// nil.
func parseOMDBRating(s string) *float64 {
	if s == "" || s == "N/A" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseOMDBVotes parses "1,234,567" into an int pointer; "N/A" and garbage
// are nil.
func parseOMDBVotes(s string) *int {
	if s == "" || s == "N/A" {
		return nil
	}
	v, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil
	}
	return &v
}

// parseRottenTomatoes pulls the Rotten Tomatoes percentage ("87%") out of the
// ratings array. A missing array or source is nil.
func parseRottenTomatoes(ratings []omdbRating) *float64 {
	for _, r := range ratings {
		if r.Source != "Rotten Tomatoes" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(r.Value, "%"), 64)
		if err != nil {
			return nil
		}
		return &v
	}
	return nil
}
