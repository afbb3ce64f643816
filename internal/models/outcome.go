package models

import "time"

// ItemOutcome is the structured per-item result of one reconciliation pass.
// It is aggregated into run statistics and never thrown; a failed item sets
// Error and leaves the rest of the batch untouched.
type ItemOutcome struct {
	ExternalID         int64  `json:"external_id"`
	Skipped            bool   `json:"skipped,omitempty"`
	Added              bool   `json:"added,omitempty"`
	Updated            bool   `json:"updated,omitempty"`
	SnapshotsInserted  int    `json:"snapshots_inserted,omitempty"`
	SnapshotsUnchanged int    `json:"snapshots_unchanged,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Failed reports whether the item's reconciliation ended in error.
func (o ItemOutcome) Failed() bool {
	return o.Error != ""
}

// RunStats aggregates item outcomes for one processBatch invocation.
type RunStats struct {
	Processed          int      `json:"processed"`
	Succeeded          int      `json:"succeeded"`
	Failed             int      `json:"failed"`
	Added              int      `json:"added"`
	Updated            int      `json:"updated"`
	SnapshotsInserted  int      `json:"snapshots_inserted"`
	SnapshotsUnchanged int      `json:"snapshots_unchanged"`
	Errors             []string `json:"errors,omitempty"`
}

// Add folds one item outcome into the aggregate.
func (s *RunStats) Add(o ItemOutcome) {
	s.Processed++
	if o.Failed() {
		s.Failed++
		s.Errors = append(s.Errors, o.Error)
		return
	}
	s.Succeeded++
	if o.Added {
		s.Added++
	}
	if o.Updated {
		s.Updated++
	}
	s.SnapshotsInserted += o.SnapshotsInserted
	s.SnapshotsUnchanged += o.SnapshotsUnchanged
}

// CalendarStats summarizes one calendar synchronization pass.
type CalendarStats struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
}

// BackfillStats summarizes one backfill invocation.
type BackfillStats struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Sparkline is a short ordered sequence of recent watcher readings used for
// compact trend visualization, oldest first.
type Sparkline struct {
	Points []SparklinePoint `json:"points"`
}

// SparklinePoint is one reading in a sparkline.
type SparklinePoint struct {
	Watchers int       `json:"watchers"`
	At       time.Time `json:"at"`
}
