package api

import (
	"github.com/trendwatch/trend-monitor/internal/models"
	"github.com/trendwatch/trend-monitor/internal/trending"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// TrendingListResponse wraps the trending read endpoint.
type TrendingListResponse struct {
	MediaType models.MediaType         `json:"media_type"`
	Items     []*trending.TrendingItem `json:"items"`
	Count     int                      `json:"count"`
}

// CalendarResponse wraps the calendar read endpoint.
type CalendarResponse struct {
	Entries []*models.AiringEntry `json:"entries"`
	Count   int                   `json:"count"`
}

// JobListResponse wraps the job listing endpoint.
type JobListResponse struct {
	Jobs  []*models.JobSummary `json:"jobs"`
	Count int                  `json:"count"`
}

// PruneResponse reports how many calendar entries a prune removed.
type PruneResponse struct {
	Deleted int64 `json:"deleted"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status string `json:"status"`
}
