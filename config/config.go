package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Site      SiteConfig
	LazyLoad  LazyLoadConfig
	Crawl     CrawlConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Sink      SinkConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity. Each run holds exactly one page.
	MaxPages int // default: 4

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls how a single page is rendered.
type ScraperConfig struct {
	// RenderMode is "browser" (headless Chrome) or "http" (static fetch,
	// no script execution, lazy content stays unresolved).
	RenderMode string // default: "browser"

	// NavigationTimeout bounds a single page navigation.
	NavigationTimeout time.Duration // default: 60s

	// RunTimeout bounds a whole search run.
	RunTimeout time.Duration // default: 5m

	// BlockedResourceTypes lists resource types to block. Images are
	// never blocked because lazy-load completion depends on them.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracking domains.
	BlockAds bool // default: true
}

// SiteConfig describes the target retailer.
type SiteConfig struct {
	// BaseOrigin is the scheme+host every relative href resolves against.
	BaseOrigin string // default: "https://www.falabella.com.co"

	// SearchPath is appended to BaseOrigin to build the search URL.
	SearchPath string // default: "/falabella-co/search"

	// QueryParam carries the search term.
	QueryParam string // default: "Ntt"

	// PriceParam carries the "max::min" price range.
	PriceParam string // default: "facetSelect.price"

	// PageParam carries the 1-based page index when paginating.
	PageParam string // default: "page"

	// PageSize is the assumed number of listings per results page.
	PageSize int // default: 48

	// MaxPagesPerRun caps the pagination schedule.
	MaxPagesPerRun int // default: 10

	// ProductPathMarker identifies product detail hrefs for the image map.
	ProductPathMarker string // default: "/product/"

	// MediaTemplate builds a CDN image URL from a numeric product id.
	// "{id}" is replaced by the id.
	MediaTemplate string

	// Locale drives thousands grouping of derived prices.
	Locale string // default: "es-CO"

	// AcceptLanguage and UserAgent are sent with every navigation.
	AcceptLanguage string
	UserAgent      string
}

// LazyLoadConfig controls the scroll/settle/wait protocol run on every page.
type LazyLoadConfig struct {
	ScrollStep        int           // default: 300 (px)
	ScrollPause       time.Duration // default: 100ms
	MaxScrollSteps    int           // default: 200
	SettleDelay       time.Duration // default: 2s
	ImageReadyRatio   float64       // default: 0.7
	ImageReadyTimeout time.Duration // default: 5s
	ElementTimeout    time.Duration // default: 10s (first <img> wait)
}

// CrawlConfig controls pacing across pages of one run.
type CrawlConfig struct {
	// PageInterval is the minimum delay between two page visits.
	PageInterval time.Duration // default: 1s

	// RepeatThreshold is the simhash distance at or below which two
	// consecutive pages count as the same listing.
	RepeatThreshold int // default: 3
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results. 0 disables caching.
	MaxEntries int // default: 256

	// TTL is how long a cached result stays valid.
	TTL time.Duration // default: 10m
}

// SinkConfig controls where datasets are persisted.
type SinkConfig struct {
	// OutputDir receives one JSON file per run. Empty disables the file sink.
	OutputDir string

	// RedisAddr enables the Redis stream sink when non-empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string // default: "shelfscan:records"
}

// WebhookConfig controls run-completion notifications.
type WebhookConfig struct {
	// DefaultSecret signs webhook bodies when a job does not supply one.
	DefaultSecret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SHELFSCAN_HOST", "0.0.0.0"),
			Port: envIntOr("SHELFSCAN_PORT", 8080),
			Mode: envOr("SHELFSCAN_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("SHELFSCAN_HEADLESS", true),
			MaxPages:     envIntOr("SHELFSCAN_MAX_PAGES", 4),
			DefaultProxy: os.Getenv("SHELFSCAN_PROXY"),
			NoSandbox:    envBoolOr("SHELFSCAN_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("SHELFSCAN_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			RenderMode:           envOr("SHELFSCAN_RENDER_MODE", "browser"),
			NavigationTimeout:    envDurationOr("SHELFSCAN_NAV_TIMEOUT", 60*time.Second),
			RunTimeout:           envDurationOr("SHELFSCAN_RUN_TIMEOUT", 5*time.Minute),
			BlockedResourceTypes: envSliceOr("SHELFSCAN_BLOCKED_RESOURCES", []string{"Font", "Media"}),
			BlockAds:             envBoolOr("SHELFSCAN_BLOCK_ADS", true),
		},
		Site: SiteConfig{
			BaseOrigin:        envOr("SHELFSCAN_BASE_ORIGIN", "https://www.falabella.com.co"),
			SearchPath:        envOr("SHELFSCAN_SEARCH_PATH", "/falabella-co/search"),
			QueryParam:        envOr("SHELFSCAN_QUERY_PARAM", "Ntt"),
			PriceParam:        envOr("SHELFSCAN_PRICE_PARAM", "facetSelect.price"),
			PageParam:         envOr("SHELFSCAN_PAGE_PARAM", "page"),
			PageSize:          envIntOr("SHELFSCAN_PAGE_SIZE", 48),
			MaxPagesPerRun:    envIntOr("SHELFSCAN_MAX_PAGES_PER_RUN", 10),
			ProductPathMarker: envOr("SHELFSCAN_PRODUCT_PATH", "/product/"),
			MediaTemplate:     envOr("SHELFSCAN_MEDIA_TEMPLATE", "https://media.falabella.com/falabellaCO/{id}_01/public"),
			Locale:            envOr("SHELFSCAN_LOCALE", "es-CO"),
			AcceptLanguage:    envOr("SHELFSCAN_ACCEPT_LANGUAGE", "es-CO,es;q=0.9,en;q=0.8"),
			UserAgent: envOr("SHELFSCAN_USER_AGENT",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		},
		LazyLoad: LazyLoadConfig{
			ScrollStep:        envIntOr("SHELFSCAN_SCROLL_STEP", 300),
			ScrollPause:       envDurationOr("SHELFSCAN_SCROLL_PAUSE", 100*time.Millisecond),
			MaxScrollSteps:    envIntOr("SHELFSCAN_MAX_SCROLL_STEPS", 200),
			SettleDelay:       envDurationOr("SHELFSCAN_SETTLE_DELAY", 2*time.Second),
			ImageReadyRatio:   envFloatOr("SHELFSCAN_IMAGE_READY_RATIO", 0.7),
			ImageReadyTimeout: envDurationOr("SHELFSCAN_IMAGE_READY_TIMEOUT", 5*time.Second),
			ElementTimeout:    envDurationOr("SHELFSCAN_ELEMENT_TIMEOUT", 10*time.Second),
		},
		Crawl: CrawlConfig{
			PageInterval:    envDurationOr("SHELFSCAN_PAGE_INTERVAL", time.Second),
			RepeatThreshold: envIntOr("SHELFSCAN_REPEAT_THRESHOLD", 3),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SHELFSCAN_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SHELFSCAN_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SHELFSCAN_RATE_RPS", 1.0),
			Burst:             envIntOr("SHELFSCAN_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SHELFSCAN_CACHE_MAX_ENTRIES", 256),
			TTL:        envDurationOr("SHELFSCAN_CACHE_TTL", 10*time.Minute),
		},
		Sink: SinkConfig{
			OutputDir:     os.Getenv("SHELFSCAN_OUTPUT_DIR"),
			RedisAddr:     os.Getenv("SHELFSCAN_REDIS_ADDR"),
			RedisPassword: os.Getenv("SHELFSCAN_REDIS_PASSWORD"),
			RedisDB:       envIntOr("SHELFSCAN_REDIS_DB", 0),
			RedisStream:   envOr("SHELFSCAN_REDIS_STREAM", "shelfscan:records"),
		},
		Webhook: WebhookConfig{
			DefaultSecret: os.Getenv("SHELFSCAN_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("SHELFSCAN_LOG_LEVEL", "info"),
			Format: envOr("SHELFSCAN_LOG_FORMAT", "json"),
		},
	}
}

// Validate rejects configurations the crawler cannot run with.
func (c *Config) Validate() error {
	if c.Site.PageSize <= 0 {
		return fmt.Errorf("config: page size must be positive, got %d", c.Site.PageSize)
	}
	if c.Site.MaxPagesPerRun <= 0 {
		return fmt.Errorf("config: max pages per run must be positive, got %d", c.Site.MaxPagesPerRun)
	}
	if r := c.LazyLoad.ImageReadyRatio; r <= 0 || r > 1 {
		return fmt.Errorf("config: image ready ratio must be in (0,1], got %v", r)
	}
	u, err := url.Parse(c.Site.BaseOrigin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid base origin %q", c.Site.BaseOrigin)
	}
	if _, err := language.Parse(c.Site.Locale); err != nil {
		return fmt.Errorf("config: invalid locale %q: %w", c.Site.Locale, err)
	}
	switch c.Scraper.RenderMode {
	case "browser", "http":
	default:
		return fmt.Errorf("config: render mode must be \"browser\" or \"http\", got %q", c.Scraper.RenderMode)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
