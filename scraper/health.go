package scraper

import (
	"math"
	"time"
)

// Retirement thresholds for pooled pages.
const (
	maxErrScore = 3.0
	maxUses     = 50
	maxPageAge  = 50 * time.Minute
)

// pageHealth scores a pooled page across runs. A clean run lowers the
// score by 0.5 (min 0), a failed one raises it by 1.
type pageHealth struct {
	errScore float64
	uses     int
	created  time.Time
}

func newPageHealth(now time.Time) *pageHealth {
	return &pageHealth{created: now}
}

func (h *pageHealth) record(failed bool) {
	h.uses++
	if failed {
		h.errScore++
		return
	}
	h.errScore = math.Max(0, h.errScore-0.5)
}

// retire reports whether the page should be closed instead of reused.
func (h *pageHealth) retire(now time.Time) bool {
	return h.errScore >= maxErrScore || h.uses >= maxUses || now.Sub(h.created) >= maxPageAge
}
