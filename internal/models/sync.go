package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a synchronization run.
type JobStatus string

const (
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// TaskStatus is the lifecycle state of one unit of per-item work.
// Transitions are monotonic except error -> pending on retry.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusError      TaskStatus = "error"
)

// JobType names the kind of synchronization run a job performs.
type JobType string

const (
	JobTypeTrendingShows  JobType = "trending_shows"
	JobTypeTrendingMovies JobType = "trending_movies"
)

// MediaType returns the catalog a job type operates on.
func (t JobType) MediaType() MediaType {
	if t == JobTypeTrendingMovies {
		return MediaTypeMovie
	}
	return MediaTypeShow
}

// Valid reports whether the job type is known.
func (t JobType) Valid() bool {
	return t == JobTypeTrendingShows || t == JobTypeTrendingMovies
}

// SyncJob is one synchronization run. Status flips to done (or failed) lazily
// when a status check observes that no tasks remain pending or processing.
type SyncJob struct {
	ID        int64           `json:"id"`
	Type      JobType         `json:"type"`
	Status    JobStatus       `json:"status"`
	Stats     json.RawMessage `json:"stats,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TaskPayload carries the provider hints a task needs so the reconciler does
// not have to re-fetch the trending entry. Validated at the coordinator.
type TaskPayload struct {
	Watchers int    `json:"watchers"`
	TMDBID   int64  `json:"tmdb_id,omitempty"`
	IMDBID   string `json:"imdb_id,omitempty"`
	Title    string `json:"title,omitempty"`
	Year     int    `json:"year,omitempty"`
}

// Validate checks the payload fields the reconciler depends on.
func (p *TaskPayload) Validate() error {
	if p.Watchers < 0 {
		return fmt.Errorf("watchers must be non-negative, got %d", p.Watchers)
	}
	return nil
}

// SyncTask is one unit of work within a job: processing a single external
// catalog item. Created in bulk by the coordinator, mutated only by the
// task processor.
type SyncTask struct {
	ID         int64       `json:"id"`
	JobID      int64       `json:"job_id"`
	ExternalID int64       `json:"external_id"`
	Payload    TaskPayload `json:"payload"`
	Status     TaskStatus  `json:"status"`
	Attempts   int         `json:"attempts"`
	LastError  string      `json:"last_error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TaskCounts is the per-status task tally for one job.
type TaskCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Error      int `json:"error"`
}

// Total returns the number of tasks across all states.
func (c TaskCounts) Total() int {
	return c.Pending + c.Processing + c.Done + c.Error
}

// Settled reports whether every task has reached a terminal state.
func (c TaskCounts) Settled() bool {
	return c.Pending == 0 && c.Processing == 0
}

// JobSummary is the rollup returned by the job status read: the job row plus
// derived task counts.
type JobSummary struct {
	Job    SyncJob    `json:"job"`
	Counts TaskCounts `json:"tasks"`
}
