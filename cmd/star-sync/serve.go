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

	"github.com/kevinmichaelchen/star-sync/internal/api"
	"github.com/kevinmichaelchen/star-sync/internal/logging"
	"github.com/kevinmichaelchen/star-sync/internal/pipeline"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Sync on a schedule and serve trigger/status endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, done := setup()
			defer done()

			if err := cfg.Validate(); err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.ServeAddr
			}
			if interval <= 0 {
				interval = cfg.SyncInterval
			}

			runner, err := newRunner(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go schedule(ctx, runner, interval)

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewHandler(runner),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				fmt.Fprintf(os.Stderr, "star-sync listening on %s\n", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				fmt.Fprintln(os.Stderr, "shutting down...")
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default SERVE_ADDR)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between scheduled cycles (default SYNC_INTERVAL)")
	return cmd
}

// schedule runs a cycle now and then on every tick until ctx is done. The
// same-day gate keeps ticks within one day from refetching.
func schedule(ctx context.Context, runner *pipeline.Runner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := runner.RunCycle(ctx, false); reportable(err) {
			slog.Error("scheduled sync failed", logging.ErrorAttrs("sync", err)...)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// reportable reports whether a scheduled cycle error is worth logging.
// Overlapping triggers and shutdown interrupts are expected.
func reportable(err error) bool {
	return err != nil &&
		!errors.Is(err, pipeline.ErrCycleInProgress) &&
		!errors.Is(err, context.Canceled)
}
