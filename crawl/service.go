package crawl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/shelfscan/cache"
	"github.com/use-agent/shelfscan/metrics"
	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/sink"
)

// Run outcomes, used as metric labels.
const (
	runOK      = "ok"
	runCached  = "cached"
	runInvalid = "invalid"
	runError   = "error"
)

// sinkTimeout bounds the sink writes of one run. Sinks run after the run's
// context may already be done.
const sinkTimeout = 30 * time.Second

type bypassCacheKey struct{}

// BypassCache marks ctx so that Search skips the cache lookup. The fresh
// result still replaces any cached entry.
func BypassCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassCacheKey{}, true)
}

// CacheBypassed reports whether ctx was marked by BypassCache.
func CacheBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassCacheKey{}).(bool)
	return v
}

// Service is the entry point shared by the HTTP API, the CLI and the MCP
// server: validate, consult the cache, run the crawl on a pooled renderer,
// then persist the dataset.
type Service struct {
	browser    Browser
	orch       *Orchestrator
	cache      *cache.Cache
	sinks      []sink.Sink
	metrics    *metrics.Metrics
	runTimeout time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache enables result caching.
func WithCache(c *cache.Cache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithSinks adds dataset sinks, written in order after every fresh run.
func WithSinks(sinks ...sink.Sink) ServiceOption {
	return func(s *Service) { s.sinks = append(s.sinks, sinks...) }
}

// WithMetrics records run outcomes.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithRunTimeout bounds each run. Zero means no bound beyond the caller's
// context.
func WithRunTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.runTimeout = d }
}

// NewService creates a search service.
func NewService(b Browser, o *Orchestrator, opts ...ServiceOption) *Service {
	s := &Service{browser: b, orch: o}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs one search. req is defaulted in place.
func (s *Service) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResult, error) {
	// ── 1. Defaults + validation ──────────────────────────────────────
	req.Defaults()
	if err := req.Validate(); err != nil {
		s.metrics.IncRun(runInvalid)
		return nil, err
	}

	// ── 2. Cache lookup ───────────────────────────────────────────────
	key := cache.Key(req)
	if cached, ok := s.cache.Get(key); ok && !CacheBypassed(ctx) {
		slog.Info("cache hit", "query", req.Query, "mode", req.Mode)
		s.metrics.IncRun(runCached)
		hit := *cached
		hit.CacheStatus = "hit"
		return &hit, nil
	}

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	// ── 3. Acquire a renderer ─────────────────────────────────────────
	r, release, err := s.browser.Acquire(ctx)
	if err != nil {
		s.metrics.IncRun(runError)
		var se *models.ScrapeError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire renderer", err)
	}

	// ── 4. Crawl ──────────────────────────────────────────────────────
	res, err := s.orch.Run(ctx, r, req)
	release()
	if err != nil {
		s.metrics.IncRun(runError)
		return nil, err
	}
	s.metrics.IncRun(runOK)

	// ── 5. Cache store ────────────────────────────────────────────────
	// A canceled run holds only what was gathered before the cancel.
	if s.cache != nil {
		res.CacheStatus = "miss"
		if res.StopReason != models.StopCanceled && ctx.Err() == nil {
			stored := *res
			s.cache.Set(key, &stored)
		}
	}

	// ── 6. Sinks ──────────────────────────────────────────────────────
	s.persist(ctx, res)

	return res, nil
}

// persist writes res to every sink on a context detached from the run, so
// a partial dataset is still written after a timeout or cancel.
func (s *Service) persist(ctx context.Context, res *models.SearchResult) {
	if len(s.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	for _, sk := range s.sinks {
		if err := sk.Write(ctx, res); err != nil {
			s.metrics.IncSinkError(sk.Name())
			slog.Warn("dataset sink failed",
				"sink", sk.Name(),
				"error", models.NewScrapeError(models.ErrCodeSinkFailed, "sink write failed", err),
			)
		}
	}
}
