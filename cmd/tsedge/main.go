// Command tsedge is the trusted edge proxy daemon: it loads settings once
// at startup, initializes the backend registry and signer as set-once
// singletons (spec.md §5 "Shared resources"), and serves the discovery
// endpoint, the auction trigger, and the streaming proxy itself.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trusted-server/ts-edge/internal/logger"
)

func main() {
	var addr string
	var settingsPath string
	var logFormat string

	root := &cobra.Command{
		Use:   "tsedge",
		Short: "trusted edge proxy daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init("info", logFormat, ""); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			raw, err := os.ReadFile(settingsPath)
			if err != nil {
				return fmt.Errorf("read settings file: %w", err)
			}

			st, err := newState(raw, os.Environ())
			if err != nil {
				return fmt.Errorf("init daemon state: %w", err)
			}

			httpSrv := &http.Server{
				Addr:    addr,
				Handler: newRouter(st),
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("tsedge listening", "addr", addr, "publisher_domain", st.settings.Publisher.Domain)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if err == http.ErrServerClosed {
					return nil
				}
				return err
			}
		},
	}

	root.Flags().StringVar(&addr, "addr", ":8443", "listen address")
	root.Flags().StringVar(&settingsPath, "settings", "settings.toml", "path to the canonical settings TOML file")
	root.Flags().StringVar(&logFormat, "log-format", "text", "log format: text|json")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
