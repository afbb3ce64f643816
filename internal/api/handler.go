package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/trendwatch/trend-monitor/internal/cache"
	"github.com/trendwatch/trend-monitor/internal/db"
	"github.com/trendwatch/trend-monitor/internal/errors"
	"github.com/trendwatch/trend-monitor/internal/models"
	"github.com/trendwatch/trend-monitor/internal/trending"
)

type Handler struct {
	service   trending.SyncService
	store     db.Store
	respCache *cache.ResponseCache
	logger    *logrus.Logger
}

func NewHandler(service trending.SyncService, store db.Store, respCache *cache.ResponseCache, logger *logrus.Logger) *Handler {
	return &Handler{
		service:   service,
		store:     store,
		respCache: respCache,
		logger:    logger,
	}
}

// mediaTypeFromParam maps the path segment onto a catalog. Both the plural
// list form and the singular form are accepted.
func mediaTypeFromParam(param string) (models.MediaType, bool) {
	switch param {
	case "shows", "show":
		return models.MediaTypeShow, true
	case "movies", "movie":
		return models.MediaTypeMovie, true
	}
	return "", false
}

func jobTypeFromParam(param string) (models.JobType, bool) {
	switch param {
	case "shows", "trending_shows":
		return models.JobTypeTrendingShows, true
	case "movies", "trending_movies":
		return models.JobTypeTrendingMovies, true
	}
	return "", false
}

func (h *Handler) GetTrending(c *gin.Context) {
	mediaType, ok := mediaTypeFromParam(c.Param("type"))
	if !ok {
		respondError(c, http.StatusBadRequest, "unknown media type: "+c.Param("type"))
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid limit parameter")
		return
	}

	cacheKey := fmt.Sprintf("trending:%s:%d", mediaType, limit)
	if cached, ok := h.respCache.Get(cacheKey); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	items, err := h.service.ListTrending(c.Request.Context(), mediaType, limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	resp := TrendingListResponse{MediaType: mediaType, Items: items, Count: len(items)}
	h.respCache.Set(cacheKey, resp)
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetCalendar(c *gin.Context) {
	now := time.Now().UTC()
	from, err := dateQuery(c, "from", now.AddDate(0, 0, -1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid from parameter (use YYYY-MM-DD)")
		return
	}
	to, err := dateQuery(c, "to", now.AddDate(0, 0, 7))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid to parameter (use YYYY-MM-DD)")
		return
	}
	if to.Before(from) {
		respondError(c, http.StatusBadRequest, "to must not be before from")
		return
	}

	cacheKey := fmt.Sprintf("calendar:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if cached, ok := h.respCache.Get(cacheKey); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	entries, err := h.service.ListCalendar(c.Request.Context(), from, to)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	resp := CalendarResponse{Entries: entries, Count: len(entries)}
	h.respCache.Set(cacheKey, resp)
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid job id")
		return
	}
	summary, err := h.service.GetJobSummary(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListJobs(c *gin.Context) {
	limit, err := intQuery(c, "limit", 20)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	jobs, err := h.service.ListJobs(c.Request.Context(), limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, JobListResponse{Jobs: jobs, Count: len(jobs)})
}

func (h *Handler) StartSync(c *gin.Context) {
	jobType, ok := jobTypeFromParam(c.Param("type"))
	if !ok {
		respondError(c, http.StatusBadRequest, "unknown sync type: "+c.Param("type"))
		return
	}
	result, err := h.service.StartSync(c.Request.Context(), jobType)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.respCache.Flush()
	c.JSON(http.StatusAccepted, result)
}

func (h *Handler) ProcessBatch(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	stats, err := h.service.ProcessBatch(c.Request.Context(), limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.respCache.Flush()
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) SyncCalendar(c *gin.Context) {
	stats, err := h.service.SyncCalendar(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.respCache.Flush()
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) PruneCalendar(c *gin.Context) {
	deleted, err := h.service.PruneCalendar(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.respCache.Flush()
	c.JSON(http.StatusOK, PruneResponse{Deleted: deleted})
}

func (h *Handler) BackfillRatings(c *gin.Context) {
	stats, err := h.service.BackfillRatings(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.respCache.Flush()
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) BackfillMetadata(c *gin.Context) {
	stats, err := h.service.BackfillMetadata(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.respCache.Flush()
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// respondServiceError maps service errors onto HTTP statuses. An unreachable
// upstream provider is 503 so callers and schedulers can tell it apart from a
// bug.
func (h *Handler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.IsProviderUnreachable(err):
		h.logger.WithError(err).Warn("Provider unreachable")
		respondError(c, http.StatusServiceUnavailable, "upstream provider unreachable")
	case errors.IsNotFound(err):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.IsInvalidInput(err):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.WithError(err).Error("Request failed")
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Success: false, Error: message})
}

func intQuery(c *gin.Context, name string, defaultValue int) (int, error) {
	value := c.Query(name)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func dateQuery(c *gin.Context, name string, defaultValue time.Time) (time.Time, error) {
	value := c.Query(name)
	if value == "" {
		return defaultValue, nil
	}
	return time.Parse("2006-01-02", value)
}
