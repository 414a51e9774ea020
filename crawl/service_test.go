package crawl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shelfscan/cache"
	"github.com/use-agent/shelfscan/metrics"
	"github.com/use-agent/shelfscan/models"
)

type recordingSink struct {
	name    string
	err     error
	results []*models.SearchResult
	ctxErrs []error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(ctx context.Context, res *models.SearchResult) error {
	s.results = append(s.results, res)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.err
}

func laptopRenderer() *fakeRenderer {
	return newFakeRenderer(map[string]fakePage{
		pageURL("laptop hp", 0): {markup: resultsPage(1, 9)},
	})
}

func TestService_SearchCachesAndSinks(t *testing.T) {
	cfg := testConfig()
	browser := &fakeBrowser{r: laptopRenderer()}
	good := &recordingSink{name: "good"}
	bad := &recordingSink{name: "bad", err: errors.New("disk full")}
	m := metrics.New()

	svc := NewService(browser, testOrchestrator(t, cfg),
		WithCache(cache.New(8, time.Minute)),
		WithSinks(bad, good),
		WithMetrics(m),
		WithRunTimeout(time.Minute),
	)

	first, err := svc.Search(context.Background(), &models.SearchRequest{Query: "laptop hp", MaxResults: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, "miss", first.CacheStatus)
	assert.Len(t, first.Products, 5)
	assert.Len(t, good.results, 1, "a failing sink does not stop later sinks")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkErrors.WithLabelValues("bad")))

	second, err := svc.Search(context.Background(), &models.SearchRequest{Query: "LAPTOP HP", MaxResults: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, "hit", second.CacheStatus)
	assert.Equal(t, first.Products, second.Products)

	assert.Equal(t, 1, browser.acquired)
	assert.Equal(t, 1, browser.released)
	assert.Len(t, good.results, 1, "cache hits are not re-persisted")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(runOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(runCached)))
}

func TestService_BypassCacheRefreshes(t *testing.T) {
	browser := &fakeBrowser{r: laptopRenderer()}
	c := cache.New(8, time.Minute)
	svc := NewService(browser, testOrchestrator(t, testConfig()), WithCache(c))

	req := func() *models.SearchRequest {
		return &models.SearchRequest{Query: "laptop hp", MaxResults: intPtr(5)}
	}

	_, err := svc.Search(context.Background(), req())
	require.NoError(t, err)

	res, err := svc.Search(BypassCache(context.Background()), req())
	require.NoError(t, err)
	assert.Equal(t, "miss", res.CacheStatus)
	assert.Equal(t, 2, browser.acquired)
	assert.Equal(t, 1, c.Len())

	res, err = svc.Search(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, "hit", res.CacheStatus)
	assert.Equal(t, 2, browser.acquired)
}

func TestService_CanceledRunNotCached(t *testing.T) {
	browser := &fakeBrowser{r: laptopRenderer()}
	c := cache.New(8, time.Minute)
	out := &recordingSink{name: "out"}
	svc := NewService(browser, testOrchestrator(t, testConfig()), WithCache(c), WithSinks(out))

	req := func() *models.SearchRequest {
		return &models.SearchRequest{Query: "laptop hp", MaxResults: intPtr(5)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Search(ctx, req())
	require.NoError(t, err)
	assert.Equal(t, models.StopCanceled, res.StopReason)
	assert.Zero(t, c.Len())

	require.Len(t, out.results, 1, "partial results are still persisted")
	assert.NoError(t, out.ctxErrs[0], "sinks write on a live context")

	res, err = svc.Search(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, "miss", res.CacheStatus)
	assert.Len(t, res.Products, 5)
	assert.Equal(t, 2, browser.acquired)
	assert.Equal(t, 1, c.Len())
}

func TestService_InvalidRequestNeverAcquires(t *testing.T) {
	browser := &fakeBrowser{r: laptopRenderer()}
	svc := NewService(browser, testOrchestrator(t, testConfig()))

	_, err := svc.Search(context.Background(), &models.SearchRequest{Query: " "})
	require.Error(t, err)
	assert.True(t, models.IsInvalidInput(err))
	assert.Zero(t, browser.acquired)
}

func TestService_AcquireFailure(t *testing.T) {
	browser := &fakeBrowser{err: errFake}
	svc := NewService(browser, testOrchestrator(t, testConfig()))

	_, err := svc.Search(context.Background(), &models.SearchRequest{Query: "laptop hp"})
	require.Error(t, err)

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeBrowserCrash, se.Code)
	assert.ErrorIs(t, err, errFake)
}

func TestService_DefaultsApplied(t *testing.T) {
	cfg := testConfig()
	r := newFakeRenderer(map[string]fakePage{
		pageURL("tv", 1): {markup: resultsPage(0, 48)},
		pageURL("tv", 2): {markup: resultsPage(100, 148)},
		pageURL("tv", 3): {markup: resultsPage(200, 248)},
	})
	svc := NewService(&fakeBrowser{r: r}, testOrchestrator(t, cfg))

	req := &models.SearchRequest{Query: "tv"}
	res, err := svc.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.ModeItems, req.Mode)
	assert.Equal(t, models.DefaultMaxResults, req.Limit())
	assert.Len(t, res.Products, models.DefaultMaxResults)
	assert.Empty(t, res.CacheStatus, "no cache configured")
}
