package extract

import (
	"regexp"
	"strings"

	"github.com/use-agent/shelfscan/dom"
	"github.com/use-agent/shelfscan/models"
)

const (
	minPageTitle = 3
	maxPageTitle = 200
)

var (
	reListingPath = regexp.MustCompile(`/category/|/collection/|/brand/|/search`)

	// rePageTitleNoise rejects anchors whose text is a price or a call to action.
	rePageTitleNoise = regexp.MustCompile(`(?i)^\$|precio|comprar|agregar|ver más`)

	countElement = dom.Any(
		dom.AttrContainsFold("class", "count"),
		dom.AttrContainsFold("class", "total"),
		dom.AttrContainsFold("class", "result"),
	)
)

// PageLinks extracts category, collection, brand and section links for
// pages mode, in document order. Duplicates are left to the accumulator.
func (e *Extractor) PageLinks(root dom.Node) []*models.PageRecord {
	var out []*models.PageRecord
	for _, a := range root.FindDescendants(anchorWithHref) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !e.isListingHref(href) {
			continue
		}

		title := pageTitle(a)
		if l := runeLen(title); l < minPageTitle || l >= maxPageTitle {
			continue
		}
		if rePageTitleNoise.MatchString(title) {
			continue
		}

		rec := &models.PageRecord{
			Title: title,
			URL:   e.resolve(href),
			Image: e.pageImage(a),
		}
		if el, ok := a.First(countElement); ok {
			if n := int(ParseDigits(el.Text())); n > 0 {
				rec.ProductCount = &n
			}
		}
		out = append(out, rec)
	}
	return out
}

func (e *Extractor) isListingHref(href string) bool {
	if href == "" {
		return false
	}
	if reListingPath.MatchString(href) {
		return true
	}
	return e.sectionPage != nil && e.sectionPage.MatchString(href)
}

func pageTitle(a dom.Node) string {
	if t := a.Text(); t != "" {
		return t
	}
	for _, attr := range []string{"title", "aria-label"} {
		if v, ok := a.Attr(attr); ok {
			if v = dom.NormalizeSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func (e *Extractor) pageImage(a dom.Node) string {
	img, ok := a.First(dom.HasTag("img"))
	if !ok {
		return ""
	}
	for _, attr := range []string{"src", "data-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return e.resolve(v)
		}
	}
	return ""
}
