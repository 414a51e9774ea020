package crawl

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/dom"
	"github.com/use-agent/shelfscan/extract"
	"github.com/use-agent/shelfscan/metrics"
	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/simhash"
)

// firstImageScript holds once the results grid has rendered at least one image.
const firstImageScript = `() => document.querySelector('img') !== null`

// Page visit outcomes, used as metric labels.
const (
	outcomeOK       = "ok"
	outcomeDegraded = "degraded"
	outcomeFailed   = "failed"
)

// rejectOutOfRange labels candidates dropped by the price filter.
const rejectOutOfRange = "out_of_price_range"

// Orchestrator drives one search run: plan the page schedule, visit each
// page in order on a single renderer, and stop once the target count is
// reached.
type Orchestrator struct {
	ext     *extract.Extractor
	site    config.SiteConfig
	lazy    config.LazyLoadConfig
	crawl   config.CrawlConfig
	metrics *metrics.Metrics
}

// NewOrchestrator creates an orchestrator. m may be nil.
func NewOrchestrator(ext *extract.Extractor, cfg *config.Config, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		ext:     ext,
		site:    cfg.Site,
		lazy:    cfg.LazyLoad,
		crawl:   cfg.Crawl,
		metrics: m,
	}
}

// run is the mutable state of one search run.
type run struct {
	req      *models.SearchRequest
	products *Accumulator[*models.ProductRecord]
	pages    *Accumulator[*models.PageRecord]
	repeats  *simhash.Tracker
	timing   models.TimingInfo
}

func (s *run) full() bool {
	if s.req.Mode == models.ModePages {
		return s.pages.IsFull(s.req.Limit())
	}
	return s.products.IsFull(s.req.Limit())
}

// Run executes a validated request against r. Per-page failures degrade;
// the run always yields whatever was accumulated. The only error is an
// invalid request.
func (o *Orchestrator) Run(ctx context.Context, r Renderer, req *models.SearchRequest) (*models.SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	st := &run{
		req:      req,
		products: NewAccumulator(func(p *models.ProductRecord) string { return p.URL }),
		pages:    NewAccumulator(func(p *models.PageRecord) string { return p.URL }),
		repeats:  simhash.NewTracker(o.crawl.RepeatThreshold),
	}

	schedule := Plan(o.site, req)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if o.crawl.PageInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(o.crawl.PageInterval), 1)
	}

	slog.Info("search run started",
		"mode", req.Mode,
		"query", req.Query,
		"max_results", req.Limit(),
		"scheduled_pages", schedule.Len(),
	)

	visited := 0
	stop := models.StopScheduleDone
	for schedule.Len() > 0 {
		if err := limiter.Wait(ctx); err != nil {
			stop = models.StopCanceled
			break
		}
		v := schedule.PopFront()

		repeated := o.visit(ctx, r, v, st)
		visited++

		if st.full() {
			stop = models.StopTargetReached
			schedule.Clear()
			break
		}
		if repeated {
			slog.Info("results page repeats previous page, stopping", "page", v.Page, "url", v.URL)
			stop = models.StopRepeatedPage
			break
		}
		if ctx.Err() != nil {
			stop = models.StopCanceled
			break
		}
	}

	res := &models.SearchResult{
		Mode:         req.Mode,
		Query:        req.Query,
		PagesVisited: visited,
		StopReason:   stop,
		Timing:       st.timing,
	}
	if req.Mode == models.ModePages {
		res.Pages = st.pages.Records(req.Limit())
		res.Count = len(res.Pages)
	} else {
		res.Products = st.products.Records(req.Limit())
		res.Count = len(res.Products)
	}
	res.Timing.TotalMs = time.Since(start).Milliseconds()

	slog.Info("search run finished",
		"query", req.Query,
		"count", res.Count,
		"pages_visited", visited,
		"stop_reason", stop,
		"total_ms", res.Timing.TotalMs,
	)
	return res, nil
}

// visit processes one scheduled page and reports whether its listing
// repeats the previous page.
func (o *Orchestrator) visit(ctx context.Context, r Renderer, v Visit, st *run) bool {
	pageStart := time.Now()
	outcome := outcomeOK
	defer func() {
		o.metrics.IncPage(outcome)
		o.metrics.ObservePage(time.Since(pageStart))
	}()

	log := slog.With("page", v.Page, "url", v.URL)

	// ── 1. Render ─────────────────────────────────────────────────────
	if err := r.Navigate(ctx, v.URL); err != nil {
		outcome = outcomeDegraded
		log.Warn("navigation failed, extracting whatever loaded", "error", err)
	}
	if !r.WaitForCondition(ctx, firstImageScript, o.lazy.ElementTimeout) {
		log.Debug("no image appeared before timeout")
	}

	// ── 2. Lazy-load completion ───────────────────────────────────────
	rep := CompleteLazyLoad(ctx, r, o.lazy)
	log.Debug("lazy load finished",
		"scroll_steps", rep.Steps,
		"reached_bottom", rep.ReachedBottom,
		"copied_sources", rep.CopiedSources,
		"images_ready", rep.ImagesReady,
	)

	// ── 3. Image map from the live page ───────────────────────────────
	var images extract.ImageMap
	if st.req.Mode == models.ModeItems {
		images = o.ext.BuildImageMap(ctx, r)
	}

	// ── 4. Snapshot ───────────────────────────────────────────────────
	markup, err := r.SnapshotMarkup(ctx)
	st.timing.RenderMs += time.Since(pageStart).Milliseconds()
	if err != nil {
		outcome = outcomeFailed
		log.Warn("snapshot failed, skipping page", "error", err)
		return false
	}

	// ── 5. Extract ────────────────────────────────────────────────────
	extractStart := time.Now()
	defer func() { st.timing.ExtractMs += time.Since(extractStart).Milliseconds() }()

	root, err := dom.Parse(markup)
	if err != nil {
		outcome = outcomeFailed
		log.Warn("parse failed, skipping page", "error", err)
		return false
	}

	var keys []string
	var admitted int
	if st.req.Mode == models.ModePages {
		keys, admitted = o.collectPages(root, st)
	} else {
		keys, admitted = o.collectProducts(root, images, st)
	}

	log.Info("page processed",
		"candidates", len(keys),
		"admitted", admitted,
		"images_mapped", len(images),
	)
	return st.repeats.Repeated(simhash.Of(keys))
}

// collectProducts runs candidate selection and assembly over one page. It
// returns the URLs of every assembled record and how many were admitted.
func (o *Orchestrator) collectProducts(root dom.Node, images extract.ImageMap, st *run) ([]string, int) {
	candidates := extract.SelectCandidates(root)
	o.metrics.AddCandidates(len(candidates))

	var keys []string
	admitted := 0
	for _, c := range candidates {
		rec, reason := o.ext.Assemble(c, images)
		if rec == nil {
			o.metrics.IncRejected(string(reason))
			continue
		}
		keys = append(keys, rec.URL)
		if !st.req.InPriceRange(rec.PriceNumeric) {
			o.metrics.IncRejected(rejectOutOfRange)
			continue
		}
		if st.products.Admit(rec) {
			admitted++
			o.metrics.IncAdmitted(models.ModeItems)
		}
	}
	return keys, admitted
}

// collectPages gathers listing links from one page.
func (o *Orchestrator) collectPages(root dom.Node, st *run) ([]string, int) {
	links := o.ext.PageLinks(root)
	o.metrics.AddCandidates(len(links))

	keys := make([]string, 0, len(links))
	admitted := 0
	for _, p := range links {
		keys = append(keys, p.URL)
		if st.pages.Admit(p) {
			admitted++
			o.metrics.IncAdmitted(models.ModePages)
		}
	}
	return keys, admitted
}
