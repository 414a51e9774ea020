package crawl

import (
	"context"
	"time"

	"github.com/use-agent/shelfscan/extract"
)

// Renderer is one rendered page that a run drives from URL to URL.
type Renderer interface {
	extract.ScriptRunner

	// Navigate loads url. Failures are *models.ScrapeError values with a
	// navigation or timeout code.
	Navigate(ctx context.Context, url string) error

	// WaitForCondition polls predicateJS until it returns true or timeout
	// elapses. It reports whether the condition was met and never fails.
	WaitForCondition(ctx context.Context, predicateJS string, timeout time.Duration) bool

	// SnapshotMarkup serializes the current DOM.
	SnapshotMarkup(ctx context.Context) (string, error)
}

// Browser hands out renderers. release must be called exactly once.
type Browser interface {
	Acquire(ctx context.Context) (r Renderer, release func(), err error)
}
