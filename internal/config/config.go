package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port               string
	DBConnectionString string

	// Bearer token protecting the pipeline trigger endpoints
	SyncAPIToken string

	// Provider credentials and endpoints. Base URLs are configurable so the
	// clients can be pointed at a test server.
	TraktAPIURL   string
	TraktClientID string
	TraktToken    string
	TMDBAPIURL    string
	TMDBAPIKey    string
	OMDBAPIURL    string
	OMDBAPIKey    string

	Sync *SyncConfig
}

func Load() (*Config, error) {
	sync, err := loadSyncConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DBConnectionString: getEnv("DB_CONNECTION_STRING", ""),
		SyncAPIToken:       getEnv("SYNC_API_TOKEN", ""),
		TraktAPIURL:        getEnv("TRAKT_API_URL", "https://api.trakt.tv"),
		TraktClientID:      getEnv("TRAKT_CLIENT_ID", ""),
		TraktToken:         getEnv("TRAKT_TOKEN", ""),
		TMDBAPIURL:         getEnv("TMDB_API_URL", "https://api.themoviedb.org/3"),
		TMDBAPIKey:         getEnv("TMDB_API_KEY", ""),
		OMDBAPIURL:         getEnv("OMDB_API_URL", "https://www.omdbapi.com"),
		OMDBAPIKey:         getEnv("OMDB_API_KEY", ""),
		Sync:               sync,
	}, nil
}

func loadSyncConfig(overrides ...func(*SyncConfig)) (*SyncConfig, error) {
	cfg := DefaultSyncConfig()

	intVars := []struct {
		key string
		dst *int
	}{
		{"SYNC_CONCURRENCY", &cfg.Concurrency},
		{"SYNC_BATCH_LIMIT", &cfg.BatchLimit},
		{"SYNC_TRENDING_LIMIT", &cfg.TrendingLimit},
		{"BACKFILL_BATCH_SIZE", &cfg.BackfillBatchSize},
		{"AIRING_RETENTION_DAYS", &cfg.AiringRetentionDays},
	}
	for _, v := range intVars {
		raw := os.Getenv(v.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		*v.dst = n
	}

	if raw := os.Getenv("SYNC_TASK_RECLAIM_MINUTES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		cfg.TaskReclaimAfter = time.Duration(n) * time.Minute
	}
	if raw := os.Getenv("RESPONSE_CACHE_TTL_SECONDS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		cfg.ResponseCacheTTL = time.Duration(n) * time.Second
	}

	for _, o := range overrides {
		o(cfg)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
