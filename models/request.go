package models

import (
	"fmt"
	"strings"
)

// Search modes.
const (
	ModeItems = "items"
	ModePages = "pages"
)

// DefaultMaxResults is applied when the caller leaves maxProducts unset.
const DefaultMaxResults = 100

// SearchRequest is the run input for a single search crawl, shared by the
// HTTP API, the CLI and the MCP tool.
type SearchRequest struct {
	// Mode selects what is extracted: "items" (products) or "pages"
	// (category/collection links). Default: "items".
	Mode string `json:"searchFor,omitempty" binding:"omitempty,oneof=items pages"`

	// Query is the search term. Required; surrounding whitespace is ignored.
	Query string `json:"searchQuery"`

	// MaxResults bounds the number of emitted records.
	// nil = DefaultMaxResults, 0 = unbounded.
	MaxResults *int `json:"maxProducts,omitempty" binding:"omitempty,min=0"`

	// MinPrice and MaxPrice filter products by their numeric price.
	// They are ignored in pages mode.
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults() {
	if r.Mode == "" {
		r.Mode = ModeItems
	}
	if r.MaxResults == nil {
		n := DefaultMaxResults
		r.MaxResults = &n
	}
	r.Query = strings.TrimSpace(r.Query)
}

// Validate checks the request after Defaults. A blank query is always fatal.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return NewScrapeError(ErrCodeInvalidInput, "searchQuery is required", nil)
	}
	if r.Mode != ModeItems && r.Mode != ModePages {
		return NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("searchFor must be %q or %q, got %q", ModeItems, ModePages, r.Mode), nil)
	}
	if r.MaxResults != nil && *r.MaxResults < 0 {
		return NewScrapeError(ErrCodeInvalidInput, "maxProducts must be >= 0", nil)
	}
	if r.MinPrice != nil && r.MaxPrice != nil && *r.MinPrice > *r.MaxPrice {
		return NewScrapeError(ErrCodeInvalidInput, "minPrice must not exceed maxPrice", nil)
	}
	return nil
}

// Limit returns the effective result bound (0 = unbounded).
func (r *SearchRequest) Limit() int {
	if r.MaxResults == nil {
		return DefaultMaxResults
	}
	return *r.MaxResults
}

// InPriceRange reports whether a numeric price passes the optional bounds.
func (r *SearchRequest) InPriceRange(price int64) bool {
	p := float64(price)
	if r.MinPrice != nil && p < *r.MinPrice {
		return false
	}
	if r.MaxPrice != nil && p > *r.MaxPrice {
		return false
	}
	return true
}
