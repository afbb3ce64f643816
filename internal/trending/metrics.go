package trending

import (
	"math"

	"github.com/trendwatch/trend-monitor/internal/models"
)

// TrendingScore normalizes an item's watcher count against the hottest item
// of the same batch, on a 0..100 scale. A non-positive maximum yields zero.
func TrendingScore(watchers, maxWatchers int) int {
	if maxWatchers <= 0 || watchers <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(watchers) / float64(maxWatchers)))
}

// WatchersDelta computes the change in watchers against the most recent
// stored snapshot, falling back to the one-month baseline when the item has
// no snapshot history. Nil when neither reference exists.
func WatchersDelta(watchers int, lastSnapshot *models.WatcherSnapshot, baselines *Baselines, externalID int64) *int {
	if lastSnapshot != nil {
		d := watchers - lastSnapshot.Watchers
		return &d
	}
	if base, ok := baselines.Watchers(1, externalID); ok {
		d := watchers - base
		return &d
	}
	return nil
}

// Delta3M computes the change in watchers against the three-month baseline.
// Nil when the item was not in that month's list.
func Delta3M(watchers int, baselines *Baselines, externalID int64) *int {
	if base, ok := baselines.Watchers(3, externalID); ok {
		d := watchers - base
		return &d
	}
	return nil
}

// BuildSparkline reduces recent snapshots (newest first, as the store returns
// them) into an oldest-first sparkline.
func BuildSparkline(snapshots []*models.WatcherSnapshot) models.Sparkline {
	points := make([]models.SparklinePoint, 0, len(snapshots))
	for i := len(snapshots) - 1; i >= 0; i-- {
		points = append(points, models.SparklinePoint{
			Watchers: snapshots[i].Watchers,
			At:       snapshots[i].CreatedAt,
		})
	}
	return models.Sparkline{Points: points}
}
