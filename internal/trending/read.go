package trending

import (
	"context"

	"github.com/trendwatch/trend-monitor/internal/models"
)

// TrendingItem is the read-side shape for one catalog item: the stored record
// plus its watcher sparkline.
type TrendingItem struct {
	models.CatalogItem
	Sparkline models.Sparkline `json:"sparkline"`
}

// ListTrending returns the current trending list for one media type, ranked
// by trending score, with each item's recent watcher sparkline attached.
func (s *Service) ListTrending(ctx context.Context, mediaType models.MediaType, limit int) ([]*TrendingItem, error) {
	if limit <= 0 || limit > s.cfg.TrendingLimit {
		limit = s.cfg.TrendingLimit
	}
	items, err := s.store.ListTrendingItems(ctx, mediaType, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*TrendingItem, 0, len(items))
	for _, item := range items {
		snaps, err := s.store.ListRecentSnapshots(ctx, mediaType, item.ExternalID, s.cfg.SparklineLength)
		if err != nil {
			return nil, err
		}
		out = append(out, &TrendingItem{
			CatalogItem: *item,
			Sparkline:   BuildSparkline(snaps),
		})
	}
	return out, nil
}
