package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/internal/cli"
	"github.com/aretw0/ttystep/internal/presentation/tui"
	httpAdapter "github.com/aretw0/ttystep/pkg/adapters/http"
	"github.com/aretw0/ttystep/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve sessions over HTTP",
	Long: `Starts the session API: create, step, reset and end sessions over JSON,
stream recordings over websockets and expose Prometheus metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applySessionFlags(cmd)
		if cmd.Flags().Changed("addr") {
			cfg.HTTPAddr, _ = cmd.Flags().GetString("addr")
		}

		metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
		mgr, store, err := newManager(observability.Combine(metrics.Hooks(), observability.LogHooks(logger)))
		if err != nil {
			return err
		}
		defer store.Close()

		srv := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: httpAdapter.NewHandler(mgr, httpAdapter.WithLogger(logger)),
		}

		tui.PrintBanner(os.Stderr, strings.TrimSpace(ttystep.Version))
		logger.Info("Starting ttystep server", "addr", srv.Addr, "program", cfg.Program, "strategy", cfg.Strategy)

		serverErrors := make(chan error, 1)
		go func() {
			serverErrors <- srv.ListenAndServe()
		}()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		select {
		case err := <-serverErrors:
			_ = mgr.Close(context.Background())
			return err
		case <-sigCtx.Done():
			logger.Info("Shutting down", "signal", sigCtx.Signal())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = srv.Shutdown(ctx)
		if err != nil {
			logger.Warn("Graceful shutdown did not complete", "err", err)
			_ = srv.Close()
		}
		return errors.Join(mgr.Close(ctx), ignoreClosed(err))
	},
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func init() {
	addSessionFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}
