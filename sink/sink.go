package sink

import (
	"context"

	"github.com/use-agent/shelfscan/models"
)

// Sink persists the dataset of a finished run.
type Sink interface {
	Name() string
	Write(ctx context.Context, res *models.SearchResult) error
}

// records returns the run's dataset as a generic slice, in emission order.
func records(res *models.SearchResult) []any {
	if res.Mode == models.ModePages {
		out := make([]any, len(res.Pages))
		for i, p := range res.Pages {
			out[i] = p
		}
		return out
	}
	out := make([]any, len(res.Products))
	for i, p := range res.Products {
		out[i] = p
	}
	return out
}

// recordURL returns the dedup key of a dataset entry.
func recordURL(rec any) string {
	switch v := rec.(type) {
	case *models.ProductRecord:
		return v.URL
	case *models.PageRecord:
		return v.URL
	}
	return ""
}
