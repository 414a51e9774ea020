package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/webhook"
)

// Job statuses.
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Jobs runs searches in the background and keeps their outcome for an hour.
// Stored jobs are values: a finished run replaces its entry instead of
// mutating one a reader might hold.
type Jobs struct {
	svc           Searcher
	store         *expirable.LRU[string, models.SearchJob]
	sender        *webhook.Sender
	defaultSecret string
}

// NewJobs creates the job handlers. sender may be nil to disable webhooks.
func NewJobs(svc Searcher, sender *webhook.Sender, defaultSecret string) *Jobs {
	return &Jobs{
		svc:           svc,
		store:         expirable.NewLRU[string, models.SearchJob](4096, nil, time.Hour),
		sender:        sender,
		defaultSecret: defaultSecret,
	}
}

// Post returns a handler for POST /api/v1/jobs.
func (j *Jobs) Post() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.JobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		// Reject bad input now rather than in a job nobody polls.
		search := req.SearchRequest
		search.Defaults()
		if err := search.Validate(); err != nil {
			respondError(c, err)
			return
		}

		secret := req.WebhookSecret
		if secret == "" {
			secret = j.defaultSecret
		}

		job := models.SearchJob{
			ID:            "search-" + randomID(),
			Status:        JobProcessing,
			CreatedAt:     time.Now().Unix(),
			WebhookURL:    req.WebhookURL,
			WebhookSecret: secret,
		}
		j.store.Add(job.ID, job)

		go j.run(job, search)

		c.JSON(http.StatusAccepted, models.JobResponse{ID: job.ID, Status: job.Status})
	}
}

// Get returns a handler for GET /api/v1/jobs/:id.
func (j *Jobs) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := j.store.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "search job not found",
				},
			})
			return
		}

		c.JSON(http.StatusOK, models.JobStatusResponse{
			ID:     job.ID,
			Status: job.Status,
			Result: job.Result,
			Error:  job.Error,
		})
	}
}

// run executes the search detached from the request that created it.
func (j *Jobs) run(job models.SearchJob, req models.SearchRequest) {
	res, err := j.svc.Search(context.Background(), &req)

	eventType := webhook.EventSearchCompleted
	if err != nil {
		var se *models.ScrapeError
		if !errors.As(err, &se) {
			se = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
		}
		job.Status = JobFailed
		job.Error = se.ToDetail()
		eventType = webhook.EventSearchFailed
	} else {
		job.Status = JobCompleted
		job.Result = res
	}
	j.store.Add(job.ID, job)

	slog.Info("search job finished", "id", job.ID, "status", job.Status)

	if j.sender != nil && job.WebhookURL != "" {
		data := models.JobStatusResponse{ID: job.ID, Status: job.Status, Result: job.Result, Error: job.Error}
		j.sender.DeliverAsync(job.WebhookURL, job.WebhookSecret, webhook.NewEvent(eventType, job.ID, data), nil)
	}
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
