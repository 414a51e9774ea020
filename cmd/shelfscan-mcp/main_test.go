package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shelfscan/models"
)

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var r mcp.CallToolRequest
	r.Params.Arguments = args
	return r
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestSearchRequest_Arguments(t *testing.T) {
	req, err := searchRequest(toolRequest(map[string]any{
		"query":       "laptop hp",
		"max_results": float64(10),
		"max_price":   float64(3000000),
	}))
	require.NoError(t, err)
	assert.Equal(t, "laptop hp", req.Query)
	assert.Equal(t, 10, *req.MaxResults)
	assert.Nil(t, req.MinPrice)
	assert.Equal(t, 3000000.0, *req.MaxPrice)

	_, err = searchRequest(toolRequest(map[string]any{}))
	assert.Error(t, err)
}

func TestHandleSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))

		var req models.SearchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Query == "broken" {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(models.SearchResponse{
				Error: &models.ErrorDetail{Code: models.ErrCodeNavigation, Message: "navigation failed"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(models.SearchResponse{
			Success: true,
			Result: &models.SearchResult{
				Mode: models.ModeItems, Query: req.Query, Count: 1, PagesVisited: 1,
				StopReason: models.StopScheduleDone,
				Products:   []*models.ProductRecord{{Title: "HP Laptop 15", Price: "$ 2.199.900", PriceNumeric: 2199900}},
			},
		})
	}))
	defer srv.Close()

	h := handleSearch(srv.URL, "key")

	res, err := h(context.Background(), toolRequest(map[string]any{"query": "laptop"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, `1 items for "laptop"`)
	assert.Contains(t, text, "HP Laptop 15")

	res, err = h(context.Background(), toolRequest(map[string]any{"query": "broken"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "[NAVIGATION_FAILED]")
}

func TestHandleGetJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/jobs/search-1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.JobStatusResponse{ID: "search-1", Status: "processing"})
	}))
	defer srv.Close()

	h := handleGetJob(srv.URL, "key")

	res, err := h(context.Background(), toolRequest(map[string]any{"id": "search-1"}))
	require.NoError(t, err)
	assert.Equal(t, "Job search-1 is processing.", resultText(t, res))

	res, err = h(context.Background(), toolRequest(map[string]any{"id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestFormatResult_Pages(t *testing.T) {
	out := formatResult(&models.SearchResult{
		Mode: models.ModePages, Query: "tv", Count: 1, StopReason: models.StopTargetReached,
		Pages: []*models.PageRecord{{Title: "Televisores", URL: "https://x/category/1"}},
	})
	assert.Contains(t, out, "Televisores")
	assert.NotContains(t, out, "null")
}
