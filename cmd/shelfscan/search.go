package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/sink"
)

// searchFlags are the run inputs given on the command line. Nil pointers
// were not set.
type searchFlags struct {
	Query    string
	Mode     string
	Max      *int
	MinPrice *float64
	MaxPrice *float64
}

func (f searchFlags) request() *models.SearchRequest {
	return &models.SearchRequest{
		Mode:       f.Mode,
		Query:      f.Query,
		MaxResults: f.Max,
		MinPrice:   f.MinPrice,
		MaxPrice:   f.MaxPrice,
	}
}

func flagsFrom(c *cli.Context) searchFlags {
	f := searchFlags{Query: c.String("query"), Mode: c.String("mode")}
	if c.IsSet("max") {
		n := c.Int("max")
		f.Max = &n
	}
	if c.IsSet("min-price") {
		v := c.Float64("min-price")
		f.MinPrice = &v
	}
	if c.IsSet("max-price") {
		v := c.Float64("max-price")
		f.MaxPrice = &v
	}
	return f
}

func searchCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "run one search and print the dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "search term", Required: true},
			&cli.StringFlag{Name: "mode", Value: models.ModeItems, Usage: "items or pages"},
			&cli.IntFlag{Name: "max", Usage: "maximum records, 0 for no limit (default 100)"},
			&cli.Float64Flag{Name: "min-price", Usage: "minimum numeric price"},
			&cli.Float64Flag{Name: "max-price", Usage: "maximum numeric price"},
			&cli.StringFlag{Name: "format", Value: "json", Usage: "json or table"},
			&cli.StringFlag{Name: "out-dir", EnvVars: []string{"SHELFSCAN_OUTPUT_DIR"}, Usage: "also write a JSON file per run here"},
		},
		Action: func(c *cli.Context) error {
			format := c.String("format")
			if format != "json" && format != "table" {
				return cli.Exit(fmt.Sprintf("unknown format %q", format), 2)
			}

			cfg.Sink.OutputDir = c.String("out-dir")
			// One run per process: nothing to reuse a cache for.
			cfg.Cache.MaxEntries = 0

			var extra []sink.Sink
			if format == "table" {
				extra = append(extra, sink.NewTable(os.Stdout))
			}
			rt, err := newRuntime(cfg, extra...)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := rt.svc.Search(ctx, flagsFrom(c).request())
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(os.Stdout, res)
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, res *models.SearchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}
