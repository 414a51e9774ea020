package main

import (
	"fmt"
	"log/slog"

	"github.com/use-agent/shelfscan/cache"
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/crawl"
	"github.com/use-agent/shelfscan/extract"
	"github.com/use-agent/shelfscan/metrics"
	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/scraper"
	"github.com/use-agent/shelfscan/sink"
)

// pool is a renderer source that can report its utilisation.
type pool interface {
	crawl.Browser
	Stats() models.PoolStats
}

// runtime holds the components one process runs searches with.
type runtime struct {
	pool    pool
	svc     *crawl.Service
	metrics *metrics.Metrics
	closers []func()
}

// newRuntime validates cfg and assembles renderer, extractor, sinks and
// cache into a search service. extra sinks run after the configured ones.
func newRuntime(cfg *config.Config, extra ...sink.Sink) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ext, err := extract.FromSite(cfg.Site)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	rt := &runtime{metrics: metrics.New()}

	// ── 1. Renderer ───────────────────────────────────────────────────
	switch cfg.Scraper.RenderMode {
	case "http":
		rt.pool = scraper.NewStaticFetcher(cfg.Site, cfg.Browser.DefaultProxy, cfg.Scraper.NavigationTimeout)
		slog.Info("static renderer selected; lazy-loaded images will not resolve")
	default:
		sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper, cfg.Site)
		if err != nil {
			return nil, err
		}
		rt.pool = sc
		rt.closers = append(rt.closers, sc.Close)
	}

	// ── 2. Sinks ──────────────────────────────────────────────────────
	var sinks []sink.Sink
	if cfg.Sink.OutputDir != "" {
		sinks = append(sinks, sink.NewJSONFile(cfg.Sink.OutputDir))
	}
	if cfg.Sink.RedisAddr != "" {
		rs, client := sink.NewRedisStream(cfg.Sink.RedisAddr, cfg.Sink.RedisPassword, cfg.Sink.RedisDB, cfg.Sink.RedisStream)
		sinks = append(sinks, rs)
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		slog.Info("redis sink enabled", "addr", cfg.Sink.RedisAddr, "stream", cfg.Sink.RedisStream)
	}
	sinks = append(sinks, extra...)

	// ── 3. Service ────────────────────────────────────────────────────
	orch := crawl.NewOrchestrator(ext, cfg, rt.metrics)
	rt.svc = crawl.NewService(rt.pool, orch,
		crawl.WithCache(cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)),
		crawl.WithSinks(sinks...),
		crawl.WithMetrics(rt.metrics),
		crawl.WithRunTimeout(cfg.Scraper.RunTimeout),
	)
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}
