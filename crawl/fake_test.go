package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"

	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/extract"
	"github.com/use-agent/shelfscan/models"
)

func init() {
	postCopyPause = 0
}

// fakePage is one scripted results page.
type fakePage struct {
	markup      string
	navErr      error
	snapshotErr error
	imageMap    string // JSON reply to the image map script
}

// fakeRenderer serves scripted pages by URL and answers the lazy-load
// scripts without a browser.
type fakeRenderer struct {
	mu          sync.Mutex
	pages       map[string]fakePage
	current     string
	visited     []string
	bottomAfter int // scroll steps until the page reports its bottom
	scrolled    int
	scrollErr   error
	scripts     []string
}

func newFakeRenderer(pages map[string]fakePage) *fakeRenderer {
	return &fakeRenderer{pages: pages, bottomAfter: 2}
}

func (f *fakeRenderer) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = url
	f.visited = append(f.visited, url)
	f.scrolled = 0
	return f.pages[url].navErr
}

func (f *fakeRenderer) RunScript(_ context.Context, js string) (gson.JSON, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, js)

	switch {
	case strings.Contains(js, "const marker"):
		reply := f.pages[f.current].imageMap
		if reply == "" {
			reply = "[]"
		}
		return decode(reply), nil
	case strings.Contains(js, "scrollBy"):
		if f.scrollErr != nil {
			return gson.JSON{}, f.scrollErr
		}
		if f.scrolled >= f.bottomAfter {
			return decode("true"), nil
		}
		f.scrolled++
		return decode("false"), nil
	case strings.Contains(js, "img[data-src]"):
		return decode("3"), nil
	default:
		return decode("true"), nil
	}
}

func (f *fakeRenderer) WaitForCondition(context.Context, string, time.Duration) bool {
	return true
}

func (f *fakeRenderer) SnapshotMarkup(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[f.current]
	if !ok {
		return "<html><body></body></html>", nil
	}
	return p.markup, p.snapshotErr
}

func (f *fakeRenderer) Visited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.visited...)
}

func decode(raw string) gson.JSON {
	var j gson.JSON
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		panic(err)
	}
	return j
}

// fakeBrowser hands out one renderer.
type fakeBrowser struct {
	r        Renderer
	err      error
	acquired int
	released int
}

func (b *fakeBrowser) Acquire(context.Context) (Renderer, func(), error) {
	if b.err != nil {
		return nil, nil, b.err
	}
	b.acquired++
	return b.r, func() { b.released++ }, nil
}

var errFake = errors.New("fake failure")

const testBase = "https://www.falabella.com.co"

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Site.BaseOrigin = testBase
	cfg.Site.SearchPath = "/falabella-co/search"
	cfg.Site.PageSize = 48
	cfg.Site.MaxPagesPerRun = 10
	cfg.LazyLoad.ScrollPause = 0
	cfg.LazyLoad.SettleDelay = 0
	cfg.LazyLoad.MaxScrollSteps = 200
	cfg.Crawl.PageInterval = 0
	cfg.Crawl.RepeatThreshold = 3
	return cfg
}

func testOrchestrator(t *testing.T, cfg *config.Config) *Orchestrator {
	t.Helper()
	ext, err := extract.FromSite(cfg.Site)
	require.NoError(t, err)
	return NewOrchestrator(ext, cfg, nil)
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func itemsRequest(query string, max int) *models.SearchRequest {
	req := &models.SearchRequest{Query: query, MaxResults: intPtr(max)}
	req.Defaults()
	return req
}

// pod renders one product block.
func pod(id int, price string) string {
	return fmt.Sprintf(`<div class="pod" data-pod="catalyst-pod">
  <a href="/falabella-co/product/%d/item/%d" title="Laptop HP modelo %d">
    <div class="prices"><span class="copy10">$ %s</span></div>
  </a>
</div>`, id, id+1, id, price)
}

// resultsPage renders pods for ids [from, to).
func resultsPage(from, to int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="testId-searchResults-products">`)
	for id := from; id < to; id++ {
		b.WriteString(pod(id, "1.200.000"))
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func pageURL(query string, page int) string {
	u := testBase + "/falabella-co/search?Ntt=" + strings.ReplaceAll(query, " ", "%20")
	if page > 0 {
		u += fmt.Sprintf("&page=%d", page)
	}
	return u
}
