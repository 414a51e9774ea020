package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/shelfscan/models"
)

func main() {
	_ = godotenv.Load()

	apiURL := os.Getenv("SHELFSCAN_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SHELFSCAN_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "SHELFSCAN_API_KEY is required")
		os.Exit(1)
	}

	if err := server.ServeStdio(newServer(apiURL, apiKey)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"shelfscan",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_products",
		mcp.WithDescription("Search the retailer's catalogue and return product listings (title, price, old price, discount, url, image) or, in pages mode, category and brand pages. Runs a headless browser across result pages; can take a minute."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search term, e.g. 'laptop hp'"),
		),
		mcp.WithString("mode",
			mcp.Description("'items' (default) for products, 'pages' for category/collection links"),
			mcp.Enum(models.ModeItems, models.ModePages),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum records to return (default: 100, 0 for no limit)"),
		),
		mcp.WithNumber("min_price",
			mcp.Description("Minimum numeric price, items mode only"),
		),
		mcp.WithNumber("max_price",
			mcp.Description("Maximum numeric price, items mode only"),
		),
	)
	s.AddTool(searchTool, handleSearch(apiURL, apiKey))

	jobTool := mcp.NewTool("get_search_job",
		mcp.WithDescription("Fetch the status and result of an asynchronous search job started through the HTTP API."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Job id returned by POST /api/v1/jobs"),
		),
	)
	s.AddTool(jobTool, handleGetJob(apiURL, apiKey))

	return s
}

// searchRequest builds the API payload from tool arguments. Absent numeric
// arguments stay nil so server-side defaults apply.
func searchRequest(request mcp.CallToolRequest) (*models.SearchRequest, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return nil, fmt.Errorf("query is required")
	}

	req := &models.SearchRequest{
		Query: query,
		Mode:  request.GetString("mode", ""),
	}
	args := request.GetArguments()
	if v, ok := args["max_results"].(float64); ok {
		n := int(v)
		req.MaxResults = &n
	}
	if v, ok := args["min_price"].(float64); ok {
		req.MinPrice = &v
	}
	if v, ok := args["max_price"].(float64); ok {
		req.MaxPrice = &v
	}
	return req, nil
}

func handleSearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 6 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, err := searchRequest(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/search", apiKey, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.SearchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success || resp.Result == nil {
			return mcp.NewToolResultError(errorText("search failed", resp.Error)), nil
		}

		return mcp.NewToolResultText(formatResult(resp.Result)), nil
	}
}

func handleGetJob(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		body, err := apiDo(ctx, client, http.MethodGet, apiURL+"/api/v1/jobs/"+id, apiKey, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var st models.JobStatusResponse
		if err := json.Unmarshal(body, &st); err != nil || st.ID == "" {
			return mcp.NewToolResultError(fmt.Sprintf("job %s not found", id)), nil
		}

		switch {
		case st.Error != nil:
			return mcp.NewToolResultError(errorText("job "+st.Status, st.Error)), nil
		case st.Result == nil:
			return mcp.NewToolResultText(fmt.Sprintf("Job %s is %s.", st.ID, st.Status)), nil
		default:
			return mcp.NewToolResultText(formatResult(st.Result)), nil
		}
	}
}

// apiDo sends a request to the Shelfscan API and returns the response body.
func apiDo(ctx context.Context, client *http.Client, method, url, apiKey string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func errorText(fallback string, e *models.ErrorDetail) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// formatResult renders a short header followed by the records as JSON.
func formatResult(res *models.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s for %q (%d pages visited, stop: %s)\n\n",
		res.Count, res.Mode, res.Query, res.PagesVisited, res.StopReason)

	var records any = res.Products
	if res.Mode == models.ModePages {
		records = res.Pages
	}
	out, _ := json.MarshalIndent(records, "", "  ")
	b.Write(out)
	return b.String()
}
