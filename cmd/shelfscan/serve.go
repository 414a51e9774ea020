package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/use-agent/shelfscan/api"
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/webhook"
)

func serveCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: cfg.Server.Host},
			&cli.IntFlag{Name: "port", Value: cfg.Server.Port},
		},
		Action: func(c *cli.Context) error {
			cfg.Server.Host = c.String("host")
			cfg.Server.Port = c.Int("port")
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	slog.Info("shelfscan starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"renderMode", cfg.Scraper.RenderMode,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 1. Runtime (launches the browser in browser mode) ────────────
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	// ── 2. Router ─────────────────────────────────────────────────────
	router := api.NewRouter(api.Deps{
		Searcher:  rt.svc,
		Stats:     rt.pool,
		Metrics:   rt.metrics,
		Webhooks:  webhook.NewSender(10 * time.Second),
		StartTime: time.Now(),
	}, cfg)

	// ── 3. HTTP server ────────────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 4. Graceful shutdown ──────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("shelfscan stopped")
	return nil
}
