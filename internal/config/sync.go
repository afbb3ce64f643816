package config

import "time"

// SyncConfig holds synchronization pipeline configuration
type SyncConfig struct {
	// Concurrency is the worker bound for the reconciliation pool
	Concurrency int
	// BatchLimit is the max number of tasks claimed per processBatch call
	BatchLimit int
	// TrendingLimit is the number of entries requested from the trending list
	TrendingLimit int
	// BackfillBatchSize caps rows scanned per backfill invocation
	BackfillBatchSize int
	// AiringRetentionDays is the age cutoff for pruning calendar entries
	AiringRetentionDays int
	// TaskReclaimAfter is how long a task may sit in processing before a
	// later claim treats it as abandoned
	TaskReclaimAfter time.Duration
	// ResponseCacheTTL bounds staleness of the read-side JSON cache
	ResponseCacheTTL time.Duration
	// SparklineLength is the number of recent snapshots kept per sparkline
	SparklineLength int
	// Client retry policy
	ClientMaxAttempts    int
	ClientInitialBackoff time.Duration
	ClientMaxBackoff     time.Duration
}

// DefaultSyncConfig returns the default sync configuration
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		Concurrency:          6,
		BatchLimit:           50,
		TrendingLimit:        100,
		BackfillBatchSize:    100,
		AiringRetentionDays:  30,
		TaskReclaimAfter:     15 * time.Minute,
		ResponseCacheTTL:     5 * time.Minute,
		SparklineLength:      30,
		ClientMaxAttempts:    3,
		ClientInitialBackoff: time.Second,
		ClientMaxBackoff:     time.Minute,
	}
}
