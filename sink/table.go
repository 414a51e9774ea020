package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/use-agent/shelfscan/models"
)

// maxTitleRunes truncates long titles in table output.
const maxTitleRunes = 60

// Table renders the dataset as a text table.
type Table struct {
	w io.Writer
}

// NewTable creates a table sink writing to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

func (s *Table) Name() string { return "table" }

func (s *Table) Write(_ context.Context, res *models.SearchResult) error {
	t := table.NewWriter()
	t.SetOutputMirror(s.w)

	if res.Mode == models.ModePages {
		t.AppendHeader(table.Row{"#", "Title", "Products", "URL"})
		for i, p := range res.Pages {
			count := ""
			if p.ProductCount != nil {
				count = fmt.Sprint(*p.ProductCount)
			}
			t.AppendRow(table.Row{i + 1, truncate(p.Title), count, p.URL})
		}
	} else {
		t.AppendHeader(table.Row{"#", "Title", "Price", "Old Price", "Discount", "URL"})
		for i, p := range res.Products {
			t.AppendRow(table.Row{i + 1, truncate(p.Title), p.Price, deref(p.OldPrice), deref(p.Discount), p.URL})
		}
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{"", fmt.Sprintf("%d records, %d pages, %s", res.Count, res.PagesVisited, res.StopReason)})
	t.Render()
	return nil
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTitleRunes {
		return s
	}
	return string(r[:maxTitleRunes]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
