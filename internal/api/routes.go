package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Trend Monitor API
// @version 1.0
// @description API for aggregating media popularity trends and airing calendars
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the sync API token.

// SetupRouter configures the API routes. The read side is public; every
// pipeline trigger sits behind the sync token.
func SetupRouter(h *Handler, syncToken string) *gin.Engine {
	r := gin.Default()

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// @Summary Health check
	// @Tags health
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Failure 503 {object} HealthResponse
	// @Router /healthz [get]
	r.GET("/healthz", h.Health)

	v1 := r.Group("/api/v1")
	{
		// @Summary Get trending list
		// @Description Get the current trending list for one media type with watcher sparklines
		// @Tags trending
		// @Produce json
		// @Param type path string true "Media type (shows or movies)"
		// @Param limit query int false "Number of items to return"
		// @Success 200 {object} TrendingListResponse
		// @Failure 400 {object} ErrorResponse
		// @Failure 500 {object} ErrorResponse
		// @Router /trending/{type} [get]
		v1.GET("/trending/:type", h.GetTrending)

		// @Summary Get airing calendar
		// @Description Get airing entries between two dates
		// @Tags calendar
		// @Produce json
		// @Param from query string false "Start date (YYYY-MM-DD)"
		// @Param to query string false "End date (YYYY-MM-DD)"
		// @Success 200 {object} CalendarResponse
		// @Failure 400 {object} ErrorResponse
		// @Failure 500 {object} ErrorResponse
		// @Router /calendar [get]
		v1.GET("/calendar", h.GetCalendar)

		sync := v1.Group("/sync", RequireToken(syncToken))
		{
			// @Summary List recent sync jobs
			// @Tags sync
			// @Produce json
			// @Param limit query int false "Number of jobs to return" default(20)
			// @Success 200 {object} JobListResponse
			// @Failure 401 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Security ApiKeyAuth
			// @Router /sync/jobs [get]
			sync.GET("/jobs", h.ListJobs)

			// @Summary Get sync job status
			// @Description Get one job with derived task counts
			// @Tags sync
			// @Produce json
			// @Param id path int true "Job ID"
			// @Success 200 {object} models.JobSummary
			// @Failure 401 {object} ErrorResponse
			// @Failure 404 {object} ErrorResponse
			// @Security ApiKeyAuth
			// @Router /sync/jobs/{id} [get]
			sync.GET("/jobs/:id", h.GetJob)

			// @Summary Start a sync job
			// @Description Fetch the trending list and enqueue one task per entry
			// @Tags sync
			// @Produce json
			// @Param type path string true "Sync type (shows or movies)"
			// @Success 202 {object} trending.StartSyncResult
			// @Failure 401 {object} ErrorResponse
			// @Failure 503 {object} ErrorResponse
			// @Security ApiKeyAuth
			// @Router /sync/start/{type} [post]
			sync.POST("/start/:type", h.StartSync)

			// @Summary Process a batch of pending tasks
			// @Tags sync
			// @Produce json
			// @Param limit query int false "Max tasks to claim"
			// @Success 200 {object} models.RunStats
			// @Failure 401 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Security ApiKeyAuth
			// @Router /sync/process [post]
			sync.POST("/process", h.ProcessBatch)

			// @Summary Synchronize the airing calendar
			// @Tags sync
			// @Produce json
			// @Success 200 {object} models.CalendarStats
			// @Failure 401 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Security ApiKeyAuth
			// @Router /sync/calendar [post]
			sync.POST("/calendar", h.SyncCalendar)

			// @Summary Prune stale calendar entries
			// @Tags sync
			// @Produce json
			// @Success 200 {object} PruneResponse
			// @Failure 401 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Security ApiKeyAuth
			// @Router /sync/prune [post]
			sync.POST("/prune", h.PruneCalendar)

			// @Summary Backfill missing ratings
			// @Tags sync
			// @Produce json
			// @Success 200 {object} models.BackfillStats
			// @Failure 401 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Security ApiKeyAuth
			// @Router /sync/backfill/ratings [post]
			sync.POST("/backfill/ratings", h.BackfillRatings)

			// @Summary Backfill missing metadata
			// @Tags sync
			// @Produce json
			// @Success 200 {object} models.BackfillStats
			// @Failure 401 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Security ApiKeyAuth
			// @Router /sync/backfill/metadata [post]
			sync.POST("/backfill/metadata", h.BackfillMetadata)
		}
	}

	return r
}
