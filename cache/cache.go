package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/use-agent/shelfscan/models"
)

// Cache holds recent search results keyed by request. It is safe for
// concurrent use. A nil *Cache is valid and never hits.
type Cache struct {
	lru *expirable.LRU[string, *models.SearchResult]
}

// New creates a cache bounded to maxEntries results, each valid for ttl.
// maxEntries <= 0 disables caching and returns nil.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		return nil
	}
	return &Cache{lru: expirable.NewLRU[string, *models.SearchResult](maxEntries, nil, ttl)}
}

// Key derives a cache key from the fields that shape a run's output.
// The request must already carry its defaults.
func Key(req *models.SearchRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Mode))
	h.Write([]byte("|"))
	h.Write([]byte(strings.ToLower(strings.TrimSpace(req.Query))))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(req.Limit())))
	h.Write([]byte("|"))
	h.Write([]byte(bound(req.MinPrice)))
	h.Write([]byte("|"))
	h.Write([]byte(bound(req.MaxPrice)))
	return hex.EncodeToString(h.Sum(nil))
}

func bound(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Get returns a cached result.
func (c *Cache) Get(key string) (*models.SearchResult, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

// Set stores a result, evicting the least recently used entry when full.
func (c *Cache) Set(key string, res *models.SearchResult) {
	if c == nil || res == nil {
		return
	}
	c.lru.Add(key, res)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
