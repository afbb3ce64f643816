package trending

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/models"
)

// baselineMonths is how many trailing month-start baselines a run builds.
const baselineMonths = 6

// Baselines holds the historical watcher maps for one run, indexed by months
// back (0 = start of the current month). A map is empty, never nil, when its
// fetch failed; lookups then simply miss.
type Baselines struct {
	months [baselineMonths]map[int64]int
}

// Watchers returns the baseline watcher count monthsBack months ago for one
// external ID.
func (b *Baselines) Watchers(monthsBack int, externalID int64) (int, bool) {
	if b == nil || monthsBack < 0 || monthsBack >= baselineMonths {
		return 0, false
	}
	v, ok := b.months[monthsBack][externalID]
	return v, ok
}

// MonthStartDate returns the first day of the month monthsBack months before
// now, at midnight UTC. time.Date normalizes out-of-range months, so January
// minus one month lands on the previous December.
func MonthStartDate(now time.Time, monthsBack int) time.Time {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m-time.Month(monthsBack), 1, 0, 0, 0, 0, time.UTC)
}

// BaselineBuilder fetches historical most-watched lists and reduces them to
// per-month watcher maps. Built once per run, shared by every worker.
type BaselineBuilder struct {
	provider TrendingProvider
	limit    int
	logger   *logrus.Logger
}

func NewBaselineBuilder(provider TrendingProvider, limit int, logger *logrus.Logger) *BaselineBuilder {
	return &BaselineBuilder{provider: provider, limit: limit, logger: logger}
}

// Build fetches the trailing month baselines for one media type. A failed
// month logs a warning and contributes an empty map; the run proceeds with
// whatever history is available.
func (b *BaselineBuilder) Build(ctx context.Context, mediaType models.MediaType, now time.Time) *Baselines {
	baselines := &Baselines{}
	for i := 0; i < baselineMonths; i++ {
		date := MonthStartDate(now, i)
		m := make(map[int64]int)

		entries, err := b.provider.GetWatchedAsOf(ctx, mediaType, date, b.limit)
		if err != nil {
			b.logger.WithError(err).WithFields(logrus.Fields{
				"media_type": mediaType,
				"month":      date.Format("2006-01"),
			}).Warn("Failed to fetch monthly baseline")
		} else {
			for _, e := range entries {
				m[e.ExternalID] = e.Watchers
			}
		}
		baselines.months[i] = m
	}
	return baselines
}
