package crawl

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gammazero/deque"
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/models"
)

// unboundedMaxPrice stands in for an unset upper price bound.
const unboundedMaxPrice = 999999999

// Visit is one scheduled page.
type Visit struct {
	// Page is the 1-based page index, or 0 for a single unpaginated visit.
	Page int
	URL  string
}

// PageCount returns how many result pages a request needs:
// ceil(limit / pageSize), capped at the per-run maximum. Unbounded runs
// use the cap.
func PageCount(site config.SiteConfig, limit int) int {
	maxPages := site.MaxPagesPerRun
	if maxPages < 1 {
		maxPages = 1
	}
	if limit <= 0 || site.PageSize <= 0 {
		return maxPages
	}
	n := (limit + site.PageSize - 1) / site.PageSize
	if n > maxPages {
		n = maxPages
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Plan builds the visit schedule for a request.
func Plan(site config.SiteConfig, req *models.SearchRequest) *deque.Deque[Visit] {
	var q deque.Deque[Visit]

	pages := PageCount(site, req.Limit())
	if pages == 1 {
		q.PushBack(Visit{URL: SearchURL(site, req, 0)})
		return &q
	}
	for p := 1; p <= pages; p++ {
		q.PushBack(Visit{Page: p, URL: SearchURL(site, req, p)})
	}
	return &q
}

// SearchURL builds the results URL for a request. page <= 0 omits the
// page parameter.
func SearchURL(site config.SiteConfig, req *models.SearchRequest, page int) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(site.BaseOrigin, "/"))
	b.WriteString(site.SearchPath)
	b.WriteString("?")
	b.WriteString(site.QueryParam)
	b.WriteString("=")
	b.WriteString(encodeURIComponent(strings.TrimSpace(req.Query)))

	if req.MinPrice != nil || req.MaxPrice != nil {
		lo, hi := 0.0, float64(unboundedMaxPrice)
		if req.MinPrice != nil {
			lo = *req.MinPrice
		}
		if req.MaxPrice != nil {
			hi = *req.MaxPrice
		}
		b.WriteString("&")
		b.WriteString(site.PriceParam)
		b.WriteString("=")
		b.WriteString(formatBound(hi))
		b.WriteString("::")
		b.WriteString(formatBound(lo))
	}

	if page > 0 {
		b.WriteString("&")
		b.WriteString(site.PageParam)
		b.WriteString("=")
		b.WriteString(strconv.Itoa(page))
	}
	return b.String()
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// encodeURIComponent escapes a query value with %20 for spaces.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
