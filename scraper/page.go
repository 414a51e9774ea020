package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/use-agent/shelfscan/models"
)

// Page is a pooled browser tab driven through one search run.
type Page struct {
	page       *rod.Page
	navTimeout time.Duration

	// failed is set when a navigation or snapshot fails, and feeds the
	// page's health score on release.
	failed bool
}

// Navigate loads url and waits for DOMContentLoaded, bounded by the
// navigation timeout.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if p.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.navTimeout)
		defer cancel()
	}
	rp := p.page.Context(ctx)

	// The waiter must be registered before Navigate or the event is missed.
	wait := rp.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := rp.Navigate(url); err != nil {
		p.failed = true
		return categorizeError(err, "navigation to results page failed")
	}
	wait()

	if err := ctx.Err(); err != nil {
		p.failed = true
		return categorizeError(err, "results page did not finish loading")
	}
	return nil
}

// RunScript evaluates a JavaScript function and returns its JSON value.
func (p *Page) RunScript(ctx context.Context, js string) (gson.JSON, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return gson.JSON{}, err
	}
	return res.Value, nil
}

// WaitForCondition polls predicateJS until it holds or timeout elapses.
func (p *Page) WaitForCondition(ctx context.Context, predicateJS string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.page.Context(ctx).Wait(rod.Eval(predicateJS)) == nil
}

// SnapshotMarkup serializes the live DOM.
func (p *Page) SnapshotMarkup(ctx context.Context) (string, error) {
	markup, err := p.page.Context(ctx).HTML()
	if err != nil {
		p.failed = true
		return "", categorizeError(err, "failed to serialize page")
	}
	return markup, nil
}

// toHeadersMap converts a plain string map to proto.NetworkHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors so callers can
// tell timeouts from navigation failures.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "run canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
