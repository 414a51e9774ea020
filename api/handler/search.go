package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/shelfscan/crawl"
	"github.com/use-agent/shelfscan/models"
)

// Searcher runs one search crawl. *crawl.Service implements it.
type Searcher interface {
	Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResult, error)
}

// Search returns a handler for POST /api/v1/search. The run is synchronous
// and bounded by the service's run timeout. ?no_cache=true forces a fresh
// run.
func Search(svc Searcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		ctx := c.Request.Context()
		if noCache, _ := strconv.ParseBool(c.Query("no_cache")); noCache {
			ctx = crawl.BypassCache(ctx)
		}

		res, err := svc.Search(ctx, &req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SearchResponse{Success: true, Result: res})
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.SearchResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeBrowserCrash:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
