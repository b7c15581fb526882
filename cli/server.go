package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/leave-ledger/api"
)

var apiServerCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "server",
	Short: "Run API Server.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.log.LogInfo(context.TODO(), "Configuration loaded",
			"port", a.cfg.Server.Port,
			"storage_driver", a.cfg.Storage.Driver,
			"storage_timeout", a.cfg.Storage.Timeout.String(),
			"events_enabled", len(a.cfg.Events.Brokers) > 0)

		if a.redeliverer != nil {
			a.redeliverer.Start()
		}

		handler := api.NewHandler(a.validator, a.store, a.log)
		router := api.NewRouter(handler, a.cfg.Server.AllowedOrigins)

		addr := ":" + a.cfg.Server.Port
		server := &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Channel to capture termination signals
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

		errChan := make(chan error, 1)

		go func() {
			a.log.LogInfo(context.TODO(), "Starting server", "address", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		select {
		case <-signalChan:
			a.log.LogInfo(context.TODO(), "Received termination signal. Initiating graceful shutdown...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				a.log.LogError(context.TODO(), "Server forced to shutdown", err)
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			a.log.LogInfo(context.TODO(), "Server stopped gracefully")
		case err := <-errChan:
			a.log.LogError(context.TODO(), "Server error", err)
			return err
		}

		return nil
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(apiServerCmd)
}
