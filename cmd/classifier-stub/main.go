// Command classifier-stub serves a heuristic classification service on the
// same routes as the real one, for local testing of factscan.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/byteowlz/factscan/internal/config"
	"github.com/byteowlz/factscan/internal/logging"
	"github.com/byteowlz/factscan/internal/stub"
)

var (
	addr     string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "classifier-stub",
	Short:        "Run a local heuristic classification service",
	Args:         cobra.NoArgs,
	RunE:         serve,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	_ = godotenv.Load()

	defaultAddr := os.Getenv("FACTSCAN_STUB_ADDR")
	if defaultAddr == "" {
		defaultAddr = "localhost:5000"
	}
	rootCmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
}

func serve(cmd *cobra.Command, args []string) error {
	logger, closer, err := logging.New(config.LoggingConfig{Level: logLevel})
	if err != nil {
		return err
	}
	defer closer.Close()

	s := stub.NewServer(logger)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting classifier stub")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
