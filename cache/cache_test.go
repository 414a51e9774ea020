package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shelfscan/models"
)

func req(query string, max int) *models.SearchRequest {
	r := &models.SearchRequest{Query: query, MaxResults: &max}
	r.Defaults()
	return r
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key(req("laptop hp", 5)), Key(req("  Laptop HP ", 5)))
	assert.NotEqual(t, Key(req("laptop hp", 5)), Key(req("laptop hp", 6)))

	lo := 100.0
	withMin := req("laptop hp", 5)
	withMin.MinPrice = &lo
	assert.NotEqual(t, Key(req("laptop hp", 5)), Key(withMin))

	pages := req("laptop hp", 5)
	pages.Mode = models.ModePages
	assert.NotEqual(t, Key(req("laptop hp", 5)), Key(pages))
}

func TestGetSet(t *testing.T) {
	c := New(2, time.Minute)
	require.NotNil(t, c)

	res := &models.SearchResult{Query: "a"}
	c.Set("a", res)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Same(t, res, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestEviction(t *testing.T) {
	c := New(2, time.Minute)
	c.Set("a", &models.SearchResult{})
	c.Set("b", &models.SearchResult{})
	c.Set("c", &models.SearchResult{})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New(4, 20*time.Millisecond)
	c.Set("a", &models.SearchResult{})
	time.Sleep(60 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestDisabled(t *testing.T) {
	c := New(0, time.Minute)
	assert.Nil(t, c)
	c.Set("a", &models.SearchResult{})
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
