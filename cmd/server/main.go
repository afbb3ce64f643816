package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/api"
	"github.com/trendwatch/trend-monitor/internal/cache"
	"github.com/trendwatch/trend-monitor/internal/config"
	"github.com/trendwatch/trend-monitor/internal/db"
	"github.com/trendwatch/trend-monitor/internal/scheduler"
	"github.com/trendwatch/trend-monitor/internal/trending"
)

// @title Trend Monitor API
// @version 1.0
// @description API for aggregating media popularity trends and airing calendars
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	// Load configuration with defaults
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database. Without a connection string the server falls back
	// to the in-memory store, which is enough for local poking but loses
	// everything on restart.
	var store db.Store
	if cfg.DBConnectionString != "" {
		pgStore, err := db.NewPostgresStore(cfg.DBConnectionString)
		if err != nil {
			logger.Fatalf("Failed to initialize database: %v", err)
		}

		// Run migrations with retry logic
		if err := retry(3, 5*time.Second, func() error {
			return pgStore.Migrate()
		}); err != nil {
			logger.Fatalf("Failed to run migrations after retries: %v", err)
		}
		store = pgStore
	} else {
		logger.Warn("DB_CONNECTION_STRING not set, using in-memory store")
		store = db.NewMemoryStore()
	}

	// Initialize providers and the pipeline service
	retryCfg := trending.RetryConfig{
		MaxAttempts:    cfg.Sync.ClientMaxAttempts,
		InitialBackoff: cfg.Sync.ClientInitialBackoff,
		MaxBackoff:     cfg.Sync.ClientMaxBackoff,
	}
	trakt := trending.NewTraktProvider(cfg.TraktAPIURL, cfg.TraktClientID, cfg.TraktToken, retryCfg, logger)
	tmdb := trending.NewTMDBProvider(cfg.TMDBAPIURL, cfg.TMDBAPIKey, retryCfg, logger)
	omdb := trending.NewOMDBProvider(cfg.OMDBAPIURL, cfg.OMDBAPIKey, retryCfg, logger)
	service := trending.NewService(store, trakt, tmdb, omdb, cfg.Sync, logger)

	respCache := cache.NewResponseCache(cfg.Sync.ResponseCacheTTL)
	apiHandler := api.NewHandler(service, store, respCache, logger)

	// Setup router with middleware
	router := api.SetupRouter(apiHandler, cfg.SyncAPIToken)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(router)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Start the pipeline scheduler
	sched := scheduler.NewScheduler(service, logger)
	if err := sched.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server exited properly")
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
