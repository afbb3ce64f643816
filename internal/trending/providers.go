package trending

import (
	"context"
	"time"

	"github.com/trendwatch/trend-monitor/internal/models"
)

// TrendingEntry is one entry of the upstream trending list, reduced to what
// the pipeline needs.
type TrendingEntry struct {
	ExternalID int64
	Watchers   int
	TMDBID     int64
	IMDBID     string
	Title      string
	Year       int
}

// WatchedEntry is one entry of a historical watched list.
type WatchedEntry struct {
	ExternalID int64
	Watchers   int
}

// UpcomingEpisode is one upcoming episode of a show.
type UpcomingEpisode struct {
	Season  int
	Episode int
	Title   string
	AirDate time.Time
	Network string
}

// TrendingProvider is the upstream ranking provider boundary.
type TrendingProvider interface {
	// GetTrendingList returns the current trending list, most watched first.
	GetTrendingList(ctx context.Context, mediaType models.MediaType, limit int) ([]TrendingEntry, error)

	// GetWatchedAsOf returns the most-watched list as of a historical date.
	GetWatchedAsOf(ctx context.Context, mediaType models.MediaType, date time.Time, limit int) ([]WatchedEntry, error)

	// GetUpcomingEpisodes returns upcoming episodes for one show.
	GetUpcomingEpisodes(ctx context.Context, externalID int64) ([]UpcomingEpisode, error)
}

// ItemDetails is the supplementary metadata fetched per item.
type ItemDetails struct {
	Title        string
	Overview     string
	Tagline      string
	Status       string
	PosterPath   string
	BackdropPath string
	SeasonCount  *int
	EpisodeCount *int
}

// Translation holds locale-specific fields.
type Translation struct {
	Title    string
	Overview string
	Tagline  string
}

// ExternalIDs cross-references one item into other providers' ID spaces.
type ExternalIDs struct {
	IMDBID string
	TMDBID int64
}

// MetadataProvider is the metadata provider boundary (TMDB-shaped).
type MetadataProvider interface {
	GetDetails(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*ItemDetails, error)
	GetTranslation(ctx context.Context, tmdbID int64, mediaType models.MediaType, locale string) (*Translation, error)
	GetWatchProviders(ctx context.Context, tmdbID int64, mediaType models.MediaType, region string) (string, error)
	GetExternalIDs(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*ExternalIDs, error)
}

// AggregatedRatings is the normalized secondary-ratings result. Nil fields
// mean the provider had no value ("N/A" or absent), never an error.
type AggregatedRatings struct {
	PrimaryRating  *float64
	VoteCount      *int
	SecondaryScore *float64
}

// RatingsProvider is the secondary ratings provider boundary (OMDb-shaped).
type RatingsProvider interface {
	GetAggregatedRatings(ctx context.Context, imdbID string, mediaType models.MediaType) (*AggregatedRatings, error)
}
