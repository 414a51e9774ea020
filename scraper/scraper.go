package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/crawl"
	"github.com/use-agent/shelfscan/models"
)

// Scraper manages the browser lifecycle and the page pool. Each search run
// borrows one page through Acquire. It is safe for concurrent use.
type Scraper struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	scraperCfg  config.ScraperConfig
	siteCfg     config.SiteConfig
	blocked     map[proto.NetworkResourceType]struct{}
	activePages atomic.Int32
	startTime   time.Time

	mu     sync.Mutex
	health map[*rod.Page]*pageHealth
}

// NewScraper launches a headless browser and initialises the page pool.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, siteCfg config.SiteConfig) (*Scraper, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("lang"), siteCfg.Locale)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	pool := rod.NewPagePool(browserCfg.MaxPages)
	slog.Info("page pool created", "maxPages", browserCfg.MaxPages)

	return &Scraper{
		browser:    browser,
		pagePool:   pool,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		siteCfg:    siteCfg,
		blocked:    blockedSet(scraperCfg.BlockedResourceTypes),
		startTime:  time.Now(),
		health:     make(map[*rod.Page]*pageHealth),
	}, nil
}

// Acquire borrows a page from the pool and prepares it for a run: stealth
// script, locale headers and request blocking are installed before the
// first navigation. release returns the page to the pool.
func (s *Scraper) Acquire(ctx context.Context) (crawl.Renderer, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, categorizeError(err, "run canceled before a page was acquired")
	}

	s.activePages.Add(1)
	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		s.pagePool.Put(nil)
		s.activePages.Add(-1)
		return nil, nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}

	// ── 1. Stealth ────────────────────────────────────────────────────
	removeStealth, err := page.EvalOnNewDocument(stealth.JS)
	if err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	// ── 2. Identity headers ───────────────────────────────────────────
	if s.siteCfg.UserAgent != "" {
		_ = proto.NetworkSetUserAgentOverride{
			UserAgent:      s.siteCfg.UserAgent,
			AcceptLanguage: s.siteCfg.AcceptLanguage,
		}.Call(page)
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(siteHeaders(s.siteCfg)),
	}.Call(page)

	// ── 3. Request blocking ───────────────────────────────────────────
	router := mountBlocker(page, s.blocked, s.scraperCfg.BlockAds)

	p := &Page{page: page, navTimeout: s.scraperCfg.NavigationTimeout}
	release := func() {
		if router != nil {
			_ = router.Stop()
		}
		if removeStealth != nil {
			_ = removeStealth()
		}
		s.recycle(page, p.failed)
		s.activePages.Add(-1)
	}

	return p, release, nil
}

// recycle scores the page and either returns it to the pool or closes it.
// A retired page frees its pool slot so the next Get creates a fresh one.
func (s *Scraper) recycle(page *rod.Page, failed bool) {
	now := time.Now()

	s.mu.Lock()
	h, ok := s.health[page]
	if !ok {
		h = newPageHealth(now)
		s.health[page] = h
	}
	h.record(failed)
	retire := h.retire(now)
	if retire {
		delete(s.health, page)
	}
	s.mu.Unlock()

	if retire {
		slog.Debug("retiring page", "errScore", h.errScore, "uses", h.uses)
		_ = page.Close()
		s.pagePool.Put(nil)
		return
	}

	// about:blank drops the results DOM before the page is reused.
	if navErr := page.Navigate("about:blank"); navErr != nil {
		slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
	}
	s.pagePool.Put(page)
}

// siteHeaders builds the extra headers sent with every navigation.
func siteHeaders(site config.SiteConfig) map[string]string {
	h := map[string]string{}
	if site.AcceptLanguage != "" {
		h["Accept-Language"] = site.AcceptLanguage
	}
	if u, err := url.Parse(site.BaseOrigin); err == nil && u.Host != "" {
		h["Referer"] = u.Scheme + "://" + u.Host + "/"
	}
	return h
}

// Stats returns a snapshot of the pool's current state.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.browserCfg.MaxPages,
		ActivePages: int(s.activePages.Load()),
	}
}

// Uptime returns how long the browser has been running.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Close drains the page pool and kills the browser process.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: draining page pool")
	s.pagePool.Cleanup(func(p *rod.Page) {
		if p != nil {
			_ = p.Close()
		}
	})
	slog.Info("scraper shutting down: closing browser")
	s.browser.MustClose()
	slog.Info("scraper shutdown complete")
}
