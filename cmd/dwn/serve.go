package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/dwn/pkg/log"
	"github.com/cuemby/dwn/pkg/metrics"
	"github.com/cuemby/dwn/pkg/node"
	"github.com/cuemby/dwn/pkg/transport"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run this node's HTTP surface",
	Long: `Opens the bolt-backed stores under --data-dir and serves the
node's JSON handle() surface over HTTP at POST /dwn, plus Prometheus
metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		addr, _ := cmd.Flags().GetString("addr")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		n, err := node.Open(cfg)
		if err != nil {
			return fmt.Errorf("open node: %w", err)
		}
		defer n.Close()

		srv := transport.NewServer(cfg, n.Provider)
		httpSrv := &http.Server{Addr: addr, Handler: srv}

		errCh := make(chan error, 1)
		go func() {
			log.Logger.Info().Str("addr", addr).Msg("dwn listening")
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			log.Logger.Info().Str("addr", metricsAddr).Msg("metrics listening")
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Logger.Error().Err(err).Msg("metrics server error")
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Logger.Info().Msg("shutting down")
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8787", "Address the dwn HTTP surface listens on")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address the /metrics endpoint listens on")
}
