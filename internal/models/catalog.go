package models

import "time"

// MediaType identifies which catalog an item belongs to.
type MediaType string

const (
	MediaTypeShow  MediaType = "show"
	MediaTypeMovie MediaType = "movie"
)

// Valid reports whether the media type is one of the known catalogs.
func (t MediaType) Valid() bool {
	return t == MediaTypeShow || t == MediaTypeMovie
}

// CatalogItem is the canonical local record for one piece of media,
// uniquely keyed by (media_type, external_id).
type CatalogItem struct {
	ID         int64     `json:"-"`
	MediaType  MediaType `json:"media_type"`
	ExternalID int64     `json:"external_id"`
	TMDBID     int64     `json:"tmdb_id,omitempty"`
	IMDBID     string    `json:"imdb_id,omitempty"`

	Title           string `json:"title"`
	TranslatedTitle string `json:"translated_title,omitempty"`
	Overview        string `json:"overview,omitempty"`
	Tagline         string `json:"tagline,omitempty"`
	Year            int    `json:"year,omitempty"`
	Status          string `json:"status,omitempty"`
	PosterPath      string `json:"poster_path,omitempty"`
	BackdropPath    string `json:"backdrop_path,omitempty"`
	WatchProviders  string `json:"watch_providers,omitempty"`
	SeasonCount     *int   `json:"season_count,omitempty"`
	EpisodeCount    *int   `json:"episode_count,omitempty"`

	// Rating fields from multiple sources. Nil means never fetched;
	// backfill fills only nil fields and never overwrites a value with nil.
	PrimaryRating  *float64 `json:"primary_rating,omitempty"`
	VoteCount      *int     `json:"vote_count,omitempty"`
	SecondaryScore *float64 `json:"secondary_score,omitempty"`

	TrendingScore     int        `json:"trending_score"`
	Watchers          int        `json:"watchers"`
	WatchersDelta     *int       `json:"watchers_delta,omitempty"`
	Delta3M           *int       `json:"delta_3m,omitempty"`
	TrendingUpdatedAt *time.Time `json:"trending_updated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatcherSnapshot is one point-in-time popularity reading for a catalog
// item. Append-only; never updated.
type WatcherSnapshot struct {
	ID         int64     `json:"-"`
	MediaType  MediaType `json:"media_type"`
	ExternalID int64     `json:"external_id"`
	Watchers   int       `json:"watchers"`
	CreatedAt  time.Time `json:"created_at"`
}

// AiringEntry is one upcoming or recently aired episode instance tied to a
// catalog item, keyed by (external_id, season, episode).
type AiringEntry struct {
	ID         int64     `json:"-"`
	ExternalID int64     `json:"external_id"`
	Season     int       `json:"season"`
	Episode    int       `json:"episode"`
	Title      string    `json:"title,omitempty"`
	AirDate    time.Time `json:"air_date"`
	Network    string    `json:"network,omitempty"`
	EntryType  string    `json:"entry_type,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
