package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floodaudit/floodaudit/internal/cache"
	"github.com/floodaudit/floodaudit/internal/dataset"
	"github.com/floodaudit/floodaudit/internal/fetcher"
	"github.com/floodaudit/floodaudit/internal/geo"
	"github.com/floodaudit/floodaudit/internal/server"
	"github.com/floodaudit/floodaudit/internal/session"
)

var (
	servePort    int
	serveRefresh time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		palette, err := geo.LoadPalette(cfg.Palette.Path)
		if err != nil {
			return err
		}
		views, err := cache.New(cfg.Cache.ViewEntries)
		if err != nil {
			return err
		}
		data := newDataset(newTableCache())

		// Warm the table; a missing file is served as 503 until it appears.
		if _, err := data.Current(ctx); err != nil {
			zap.L().Warn("serve: dataset unavailable at startup", zap.Error(err))
		}

		sessions := session.NewManager(time.Duration(cfg.Session.TTLMinutes) * time.Minute)
		go sessions.Run(ctx, time.Minute)

		if serveRefresh > 0 && cfg.Fetch.URL != "" {
			f, err := newFetcher()
			if err != nil {
				return err
			}
			go refreshLoop(ctx, serveRefresh, f, data, views)
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: server.New(data, sessions, views, palette, server.Options{
				RateLimit:   cfg.Server.RateLimit,
				RateBurst:   cfg.Server.RateBurst,
				CORSOrigins: cfg.Server.CORSOrigins,
			}).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// refreshLoop re-downloads the dataset every interval and swaps it in.
func refreshLoop(ctx context.Context, interval time.Duration, f fetcher.Fetcher, data *dataset.Service, views *cache.Views) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fetchDataset(ctx, f); err != nil {
				zap.L().Error("serve: refresh download failed", zap.Error(err))
				continue
			}
			snap, err := data.Reload(ctx)
			if err != nil {
				zap.L().Error("serve: refresh reload failed", zap.Error(err))
				continue
			}
			views.Purge()
			zap.L().Info("serve: dataset refreshed", zap.Uint64("version", snap.Version))
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().DurationVar(&serveRefresh, "refresh", 0, "re-fetch fetch.url at this interval (0 disables)")
	rootCmd.AddCommand(serveCmd)
}
