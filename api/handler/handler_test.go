package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shelfscan/crawl"
	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/webhook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearcher struct {
	mu       sync.Mutex
	res      *models.SearchResult
	err      error
	reqs     []models.SearchRequest
	contexts []context.Context
}

func (f *fakeSearcher) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, *req)
	f.contexts = append(f.contexts, ctx)
	return f.res, f.err
}

func (f *fakeSearcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type fixedStats models.PoolStats

func (s fixedStats) Stats() models.PoolStats { return models.PoolStats(s) }

func laptopResult() *models.SearchResult {
	return &models.SearchResult{
		Mode:  models.ModeItems,
		Query: "laptop",
		Count: 1,
		Products: []*models.ProductRecord{
			{Title: "HP Laptop 15", Price: "$ 2.199.900", PriceNumeric: 2199900, URL: "https://www.falabella.com.co/falabella-co/product/1/x/2"},
		},
		StopReason: models.StopScheduleDone,
	}
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSearch_OK(t *testing.T) {
	svc := &fakeSearcher{res: laptopResult()}
	r := gin.New()
	r.POST("/search", Search(svc))

	w := do(r, http.MethodPost, "/search", `{"searchQuery":"laptop","maxProducts":10,"minPrice":1000}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "HP Laptop 15", resp.Result.Products[0].Title)

	require.Len(t, svc.reqs, 1)
	assert.Equal(t, 10, *svc.reqs[0].MaxResults)
	assert.Equal(t, 1000.0, *svc.reqs[0].MinPrice)
}

func TestSearch_NoCacheFlag(t *testing.T) {
	svc := &fakeSearcher{res: laptopResult()}
	r := gin.New()
	r.POST("/search", Search(svc))

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/search?no_cache=true", `{"searchQuery":"laptop"}`).Code)
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/search", `{"searchQuery":"laptop"}`).Code)

	require.Len(t, svc.contexts, 2)
	assert.True(t, crawl.CacheBypassed(svc.contexts[0]))
	assert.False(t, crawl.CacheBypassed(svc.contexts[1]))
}

func TestSearch_BadMode(t *testing.T) {
	svc := &fakeSearcher{}
	r := gin.New()
	r.POST("/search", Search(svc))

	w := do(r, http.MethodPost, "/search", `{"searchQuery":"laptop","searchFor":"brands"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.calls())
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewScrapeError(models.ErrCodeInvalidInput, "searchQuery is required", nil), http.StatusBadRequest},
		{models.NewScrapeError(models.ErrCodeTimeout, "slow", nil), http.StatusGatewayTimeout},
		{models.NewScrapeError(models.ErrCodeNavigation, "nav", nil), http.StatusBadGateway},
		{models.NewScrapeError(models.ErrCodeBrowserCrash, "crash", nil), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.POST("/search", Search(&fakeSearcher{err: tt.err}))

			w := do(r, http.MethodPost, "/search", `{"searchQuery":"x"}`)
			assert.Equal(t, tt.want, w.Code)

			var resp models.SearchResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
		})
	}
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", Health(fixedStats{MaxPages: 4, ActivePages: 4}, time.Now()))

	w := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, Version, resp.Version)

	r = gin.New()
	r.GET("/health", Health(fixedStats{}, time.Now()))
	require.NoError(t, json.Unmarshal(do(r, http.MethodGet, "/health", "").Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func jobsEngine(j *Jobs) *gin.Engine {
	r := gin.New()
	r.POST("/jobs", j.Post())
	r.GET("/jobs/:id", j.Get())
	return r
}

func pollJob(t *testing.T, r http.Handler, id string) models.JobStatusResponse {
	t.Helper()
	var st models.JobStatusResponse
	require.Eventually(t, func() bool {
		w := do(r, http.MethodGet, "/jobs/"+id, "")
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &st) != nil {
			return false
		}
		return st.Status != JobProcessing
	}, 5*time.Second, 10*time.Millisecond)
	return st
}

func TestJobs_CompletedWithWebhook(t *testing.T) {
	events := make(chan webhook.Event, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, webhook.Sign("default-secret", body), r.Header.Get(webhook.SignatureHeader))
		var ev webhook.Event
		_ = json.Unmarshal(body, &ev)
		events <- ev
	}))
	defer hook.Close()

	j := NewJobs(&fakeSearcher{res: laptopResult()}, webhook.NewSender(time.Second), "default-secret")
	r := jobsEngine(j)

	w := do(r, http.MethodPost, "/jobs", `{"searchQuery":"laptop","webhook_url":"`+hook.URL+`"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var created models.JobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Contains(t, created.ID, "search-")
	assert.Equal(t, JobProcessing, created.Status)

	st := pollJob(t, r, created.ID)
	assert.Equal(t, JobCompleted, st.Status)
	require.NotNil(t, st.Result)
	assert.Equal(t, 1, st.Result.Count)

	select {
	case ev := <-events:
		assert.Equal(t, webhook.EventSearchCompleted, ev.Type)
		assert.Equal(t, created.ID, ev.JobID)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not delivered")
	}
}

func TestJobs_Failed(t *testing.T) {
	svc := &fakeSearcher{err: models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire renderer", nil)}
	r := jobsEngine(NewJobs(svc, nil, ""))

	w := do(r, http.MethodPost, "/jobs", `{"searchQuery":"laptop"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var created models.JobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	st := pollJob(t, r, created.ID)
	assert.Equal(t, JobFailed, st.Status)
	require.NotNil(t, st.Error)
	assert.Equal(t, models.ErrCodeBrowserCrash, st.Error.Code)
}

func TestJobs_InvalidRequestRejectedUpFront(t *testing.T) {
	svc := &fakeSearcher{}
	r := jobsEngine(NewJobs(svc, nil, ""))

	w := do(r, http.MethodPost, "/jobs", `{"searchQuery":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/jobs", `{"searchQuery":"tv","minPrice":10,"maxPrice":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.calls())
}

func TestJobs_NotFound(t *testing.T) {
	r := jobsEngine(NewJobs(&fakeSearcher{}, nil, ""))
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/jobs/search-nope", "").Code)
}
