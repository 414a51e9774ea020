package models

// Stop reasons reported in SearchResult.
const (
	StopScheduleDone  = "schedule_exhausted"
	StopTargetReached = "target_reached"
	StopRepeatedPage  = "repeated_page"
	StopCanceled      = "canceled"
)

// SearchResult is the dataset produced by one run.
type SearchResult struct {
	Mode         string           `json:"mode"`
	Query        string           `json:"query"`
	Count        int              `json:"count"`
	Products     []*ProductRecord `json:"products,omitempty"`
	Pages        []*PageRecord    `json:"pages,omitempty"`
	PagesVisited int              `json:"pages_visited"`
	StopReason   string           `json:"stop_reason"`
	Timing       TimingInfo       `json:"timing"`

	// CacheStatus is "hit", "miss", or empty when caching is disabled.
	CacheStatus string `json:"cache_status,omitempty"`
}

// SearchResponse is the envelope for POST /api/v1/search.
type SearchResponse struct {
	Success bool          `json:"success"`
	Result  *SearchResult `json:"result,omitempty"`
	Error   *ErrorDetail  `json:"error,omitempty"`
}

// TimingInfo provides duration breakdowns in milliseconds.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`

	// RenderMs covers navigation and lazy-load completion across all pages.
	RenderMs int64 `json:"render_ms"`

	// ExtractMs covers parsing, candidate selection and assembly.
	ExtractMs int64 `json:"extract_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
