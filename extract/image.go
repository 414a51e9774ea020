package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/use-agent/shelfscan/dom"
	"github.com/ysmood/gson"
)

// ImageMap maps an absolute product URL to an image source observed on the
// live page.
type ImageMap map[string]string

// Lookup finds the image for productURL, retrying without query and fragment.
func (m ImageMap) Lookup(productURL string) string {
	if len(m) == 0 || productURL == "" {
		return ""
	}
	if src, ok := m[productURL]; ok {
		return src
	}
	return m[stripQuery(productURL)]
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// ScriptRunner evaluates a JavaScript function on the live page.
type ScriptRunner interface {
	RunScript(ctx context.Context, js string) (gson.JSON, error)
}

// imageMapScript collects [{href, src}] for every product anchor. href is
// read from the DOM property, so it is already absolute.
const imageMapScript = `() => {
	const marker = %s;
	const bad = /placeholder|icon|loading|1x1/i;
	const out = [];
	for (const a of document.querySelectorAll('a[href]')) {
		if (!a.href || !a.href.includes(marker)) continue;
		for (const img of a.querySelectorAll('img')) {
			const src = img.currentSrc || img.getAttribute('src') || img.getAttribute('data-src') || '';
			if (src && !src.startsWith('data:') && !bad.test(src)) {
				out.push({ href: a.href, src: src });
				break;
			}
		}
	}
	return out;
}`

// BuildImageMap reads product anchor images from the live page. The first
// image seen for a URL wins. Script failures yield an empty map.
func (e *Extractor) BuildImageMap(ctx context.Context, r ScriptRunner) ImageMap {
	res, err := r.RunScript(ctx, fmt.Sprintf(imageMapScript, strconv.Quote(e.productMarker)))
	if err != nil {
		slog.Debug("image map script failed, continuing without it", "error", err)
		return ImageMap{}
	}

	m := make(ImageMap)
	for _, item := range res.Arr() {
		fields := item.Map()
		hrefVal, ok := fields["href"]
		if !ok {
			continue
		}
		srcVal, ok := fields["src"]
		if !ok {
			continue
		}
		href, src := hrefVal.Str(), srcVal.Str()
		if href == "" || isPlaceholderSource(src) {
			continue
		}
		key := stripFragment(e.resolve(href))
		if _, seen := m[key]; seen {
			continue
		}
		m[key] = e.resolve(src)
	}
	return m
}

func stripFragment(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}

// --- image chain ---

// imageAttrs is the source attribute priority on descendant images.
var imageAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

var (
	reProductID = regexp.MustCompile(`/product/(\d+)(?:[/?#]|$)`)
	reLongID    = regexp.MustCompile(`/(\d{6,})(?:[/?#]|$)`)
)

func imageFromMap(in *Input) string {
	return in.Images.Lookup(in.URL)
}

func (e *Extractor) imageFromAttributes(in *Input) string {
	for _, img := range in.Node.FindDescendants(dom.HasTag("img")) {
		for _, attr := range imageAttrs {
			if v, ok := img.Attr(attr); ok && !isPlaceholderSource(v) {
				return e.resolve(v)
			}
		}
		if v, ok := img.Attr("srcset"); ok {
			if first := firstSrcsetEntry(v); !isPlaceholderSource(first) {
				return e.resolve(first)
			}
		}
	}
	return ""
}

// imageFromProductID synthesizes a CDN image from the numeric product id.
func (e *Extractor) imageFromProductID(in *Input) string {
	if e.mediaTemplate == "" {
		return ""
	}
	id := productID(in.URL)
	if id == "" {
		return ""
	}
	return strings.ReplaceAll(e.mediaTemplate, "{id}", id)
}

func productID(productURL string) string {
	if m := reProductID.FindStringSubmatch(productURL); m != nil {
		return m[1]
	}
	if m := reLongID.FindStringSubmatch(productURL); m != nil {
		return m[1]
	}
	return ""
}
