package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/shelfscan/config"
)

// postCopyPause lets images whose src was just assigned start loading.
var postCopyPause = 500 * time.Millisecond

// scrollStepScript scrolls one step unless the viewport already reaches the
// bottom, and reports whether it did.
const scrollStepScript = `() => {
	if (window.scrollY + window.innerHeight >= document.body.scrollHeight) return true;
	window.scrollBy(0, %d);
	return false;
}`

const scrollTopScript = `() => { window.scrollTo(0, 0); return true; }`

// copyLazySourcesScript promotes data-src to src on images that have none.
const copyLazySourcesScript = `() => {
	let n = 0;
	document.querySelectorAll('img[data-src]').forEach(img => {
		const dataSrc = img.getAttribute('data-src');
		if (dataSrc && !img.getAttribute('src')) {
			img.setAttribute('src', dataSrc);
			n++;
		}
	});
	return n;
}`

// imagesReadyScript holds once the given fraction of images has a real source.
const imagesReadyScript = `() => {
	const imgs = Array.from(document.images);
	if (imgs.length === 0) return true;
	const bad = /placeholder|icon|loading|1x1/i;
	const ready = imgs.filter(img => {
		const src = img.currentSrc || img.getAttribute('src') || '';
		return src && !src.startsWith('data:') && !bad.test(src);
	}).length;
	return ready / imgs.length >= %g;
}`

// LazyLoadReport describes how far the lazy-load protocol got. A partial
// report is normal: the page is still extracted.
type LazyLoadReport struct {
	Steps         int
	ReachedBottom bool
	CopiedSources int
	ImagesReady   bool
}

// CompleteLazyLoad forces deferred content to materialize: scroll to the
// bottom in fixed steps, return to the top, settle, promote data-src, and
// wait for most images to carry a real source. Every stage is best-effort.
func CompleteLazyLoad(ctx context.Context, r Renderer, cfg config.LazyLoadConfig) LazyLoadReport {
	var rep LazyLoadReport

	// ── 1. Progressive scroll ─────────────────────────────────────────
	step := fmt.Sprintf(scrollStepScript, cfg.ScrollStep)
	for rep.Steps < cfg.MaxScrollSteps {
		res, err := r.RunScript(ctx, step)
		if err != nil {
			slog.Debug("scroll step failed, skipping remaining scroll", "step", rep.Steps, "error", err)
			break
		}
		if res.Bool() {
			rep.ReachedBottom = true
			break
		}
		rep.Steps++
		if !sleepCtx(ctx, cfg.ScrollPause) {
			return rep
		}
	}

	// ── 2. Back to top ────────────────────────────────────────────────
	if _, err := r.RunScript(ctx, scrollTopScript); err != nil {
		slog.Debug("scroll to top failed", "error", err)
	}

	// ── 3. Settle ─────────────────────────────────────────────────────
	if !sleepCtx(ctx, cfg.SettleDelay) {
		return rep
	}

	// ── 4. Promote lazy sources ───────────────────────────────────────
	if res, err := r.RunScript(ctx, copyLazySourcesScript); err != nil {
		slog.Debug("lazy source promotion failed", "error", err)
	} else {
		rep.CopiedSources = res.Int()
	}
	if !sleepCtx(ctx, postCopyPause) {
		return rep
	}

	// ── 5. Image readiness ────────────────────────────────────────────
	rep.ImagesReady = r.WaitForCondition(ctx, fmt.Sprintf(imagesReadyScript, cfg.ImageReadyRatio), cfg.ImageReadyTimeout)
	return rep
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
