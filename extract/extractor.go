package extract

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/dom"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Options describes the target site for an Extractor.
type Options struct {
	// BaseOrigin resolves relative hrefs; "{BaseOrigin}/" is the URL of
	// a candidate with no usable link.
	BaseOrigin string

	// SearchPath is the site's search path; its first segment (e.g.
	// "falabella-co") identifies top-level section pages in pages mode.
	SearchPath string

	// ProductPathMarker identifies product detail hrefs.
	ProductPathMarker string

	// MediaTemplate builds an image URL from a product id ("{id}").
	MediaTemplate string

	// Locale drives thousands grouping of derived prices.
	Locale string
}

// Extractor holds the per-field resolver chains for one site. It is
// immutable after New and safe for concurrent use.
type Extractor struct {
	base          *url.URL
	home          string
	productMarker string
	mediaTemplate string
	sectionPage   *regexp.Regexp
	printer       *message.Printer

	TitleChain    Chain
	PriceChain    Chain
	OldPriceChain Chain
	DiscountChain Chain
	URLChain      Chain
	ImageChain    Chain
}

// New builds an Extractor with the canonical chains.
func New(opts Options) (*Extractor, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseOrigin, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("extract: invalid base origin %q", opts.BaseOrigin)
	}
	tag, err := language.Parse(opts.Locale)
	if err != nil {
		return nil, fmt.Errorf("extract: invalid locale %q: %w", opts.Locale, err)
	}

	marker := opts.ProductPathMarker
	if marker == "" {
		marker = "/product/"
	}

	e := &Extractor{
		base:          base,
		home:          base.String() + "/",
		productMarker: marker,
		mediaTemplate: opts.MediaTemplate,
		printer:       message.NewPrinter(tag),
	}
	if prefix := sitePrefix(opts.SearchPath); prefix != "" {
		e.sectionPage = regexp.MustCompile(regexp.QuoteMeta(prefix) + `/[a-z\-]+/?$`)
	}

	e.TitleChain = Chain{titleFromAnchorAttr, titleFromImageAlt, titleFromCleanText}
	e.PriceChain = Chain{priceFromPriceElement}
	e.OldPriceChain = Chain{oldPriceFromStrikeElement}
	e.DiscountChain = Chain{discountFromBadge}
	e.URLChain = Chain{e.urlFromDescendantAnchor, e.urlFromSelf}
	e.ImageChain = Chain{imageFromMap, e.imageFromAttributes, e.imageFromProductID}
	return e, nil
}

// FromSite builds an Extractor for a configured site.
func FromSite(site config.SiteConfig) (*Extractor, error) {
	return New(Options{
		BaseOrigin:        site.BaseOrigin,
		SearchPath:        site.SearchPath,
		ProductPathMarker: site.ProductPathMarker,
		MediaTemplate:     site.MediaTemplate,
		Locale:            site.Locale,
	})
}

// Home is the URL assigned to candidates without a usable link.
func (e *Extractor) Home() string { return e.home }

// sitePrefix returns the first path segment of the search path.
func sitePrefix(searchPath string) string {
	dir := strings.Trim(path.Dir(path.Clean("/"+searchPath)), "/")
	if dir == "" || dir == "." {
		return ""
	}
	first, _, _ := strings.Cut(dir, "/")
	return first
}

// resolve makes href absolute against the base origin. It returns "" for
// hrefs that cannot be parsed.
func (e *Extractor) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}

// Title resolves the candidate title, or models.UnknownTitle.
func (e *Extractor) Title(n dom.Node) string {
	return finishTitle(e.TitleChain.Resolve(&Input{Node: n}))
}

// Price resolves the display price ("" when no price element exists).
func (e *Extractor) Price(n dom.Node) string {
	return e.PriceChain.Resolve(&Input{Node: n})
}

// OldPrice resolves a directly displayed previous price, or nil.
func (e *Extractor) OldPrice(n dom.Node) *string {
	return optional(e.OldPriceChain.Resolve(&Input{Node: n}))
}

// Discount resolves the signed discount badge ("-20%"), or nil.
func (e *Extractor) Discount(n dom.Node) *string {
	return optional(e.DiscountChain.Resolve(&Input{Node: n}))
}

// URL resolves the candidate's absolute product URL, defaulting to Home.
func (e *Extractor) URL(n dom.Node) string {
	if u := e.URLChain.Resolve(&Input{Node: n}); u != "" {
		return u
	}
	return e.home
}

// Image resolves the candidate image for an already resolved URL.
func (e *Extractor) Image(n dom.Node, productURL string, images ImageMap) string {
	return e.ImageChain.Resolve(&Input{Node: n, URL: productURL, Images: images})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
