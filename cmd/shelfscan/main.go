package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/use-agent/shelfscan/config"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.Load()
	initLogger(os.Stderr, cfg.Log)

	if err := newApp(cfg).Run(os.Args); err != nil {
		slog.Error("shelfscan failed", "error", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) *cli.App {
	app := cli.NewApp()
	app.Name = "shelfscan"
	app.Usage = "scrape product listings from a retailer search page"
	app.Commands = []*cli.Command{
		searchCommand(cfg),
		serveCommand(cfg),
	}
	return app
}

// initLogger configures slog based on the LogConfig. Logs go to w so that
// stdout stays free for datasets.
func initLogger(w io.Writer, cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
