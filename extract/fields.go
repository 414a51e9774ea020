package extract

import (
	"regexp"
	"strings"

	"github.com/use-agent/shelfscan/dom"
	"github.com/use-agent/shelfscan/models"
)

// minTitleAttr is the shortest anchor title / image alt accepted as a title.
const minTitleAttr = 6

var (
	anchorWithTitle = dom.MatchCSS(`a[title]`)
	imageWithAlt    = dom.MatchCSS(`img[alt]`)
	anchorWithHref  = dom.MatchCSS(`a[href]`)

	priceElement = dom.Any(
		dom.AttrContainsFold("class", "price"),
		dom.MatchCSS(`[data-testid="price"]`),
	)

	strikeElement = dom.Any(
		dom.AttrContainsFold("class", "crossed"),
		dom.AttrContainsFold("class", "old-price"),
		dom.AttrContainsFold("class", "original"),
		dom.AttrContainsFold("class", "before"),
		dom.HasTag("del", "s", "strike"),
	)

	discountElement = dom.AttrContainsFold("class", "discount")

	// reNavigationPath rejects hrefs into site navigation rather than a product.
	// Only whole path segments count, so slugs like /Cartera-Mujer pass.
	reNavigationPath = regexp.MustCompile(`(?i)/(category|search|account|cart|checkout|help|about)(?:/|\?|#|$)`)
)

// --- title ---

func titleFromAnchorAttr(in *Input) string {
	return attrTitle(in.Node, anchorWithTitle, "title")
}

func titleFromImageAlt(in *Input) string {
	return attrTitle(in.Node, imageWithAlt, "alt")
}

func attrTitle(n dom.Node, pred dom.Predicate, attr string) string {
	el, ok := n.First(pred)
	if !ok {
		return ""
	}
	v, _ := el.Attr(attr)
	v = dom.NormalizeSpace(v)
	if runeLen(v) < minTitleAttr {
		return ""
	}
	return v
}

func titleFromCleanText(in *Input) string {
	return cleanTitleText(in.Node.Text())
}

// finishTitle applies the caps-glue repair and the unknown sentinel.
func finishTitle(title string) string {
	title = strings.TrimSpace(repairCapsGlue(title))
	if title == "" {
		return models.UnknownTitle
	}
	return title
}

// --- prices ---

func priceFromPriceElement(in *Input) string {
	el, ok := in.Node.First(priceElement)
	if !ok {
		return ""
	}
	text := el.Text()
	if amount := firstAmount(text); amount != "" {
		return amount
	}
	return text
}

func oldPriceFromStrikeElement(in *Input) string {
	el, ok := in.Node.First(strikeElement)
	if !ok {
		return ""
	}
	return firstAmount(el.Text())
}

func discountFromBadge(in *Input) string {
	el, ok := in.Node.First(discountElement)
	if !ok {
		return ""
	}
	return rePercent.FindString(el.Text())
}

// --- url ---

// usableHref reports whether href can point at a product page.
func usableHref(href string) bool {
	href = strings.TrimSpace(href)
	switch {
	case href == "", href == "#", href == "/":
		return false
	case strings.HasPrefix(strings.ToLower(href), "javascript:"):
		return false
	case reNavigationPath.MatchString(href):
		return false
	}
	return true
}

func (e *Extractor) urlFromDescendantAnchor(in *Input) string {
	for _, a := range in.Node.FindDescendants(anchorWithHref) {
		href, _ := a.Attr("href")
		if usableHref(href) {
			return e.resolve(href)
		}
	}
	return ""
}

// urlFromSelf covers candidates that are themselves the product anchor.
func (e *Extractor) urlFromSelf(in *Input) string {
	if in.Node.Tag() != "a" {
		return ""
	}
	href, _ := in.Node.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	return e.resolve(href)
}
