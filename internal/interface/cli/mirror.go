package cli

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

	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/internal/interface/mirror"
	"github.com/spf13/cobra"
)

var (
	mirrorAddr     string
	mirrorReadOnly bool
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Serve the local history over the build service protocol",
	Long: `Start an HTTP server that answers build service requests from the
local history. Point any client at it (qbench --url http://localhost:8411)
to read recorded builds offline.

Unless --read-only is given, builds and unknown ids are forwarded to the
configured service and recorded on the way back.

Endpoints:
  POST /build/        submit a build (forwarded)
  GET  /build/{id}    fetch a build
  GET  /b/{id}        plain-text report
  GET  /builds?q=     history listing
  GET  /health`,
	RunE: runMirror,
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
	mirrorCmd.Flags().StringVar(&mirrorAddr, "addr", envStr("QBENCH_MIRROR_ADDR", "127.0.0.1:8411"), "Listen address")
	mirrorCmd.Flags().BoolVar(&mirrorReadOnly, "read-only", false, "Serve only what the history already has")
}

func runMirror(cmd *cobra.Command, args []string) error {
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	var upstream session.Builder
	if !mirrorReadOnly {
		upstream = newClient()
	}
	logger := slog.Default()
	srv := &http.Server{
		Addr:              mirrorAddr,
		Handler:           mirror.New(database, upstream, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mirror listening", "addr", mirrorAddr, "upstream", !mirrorReadOnly)
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(os.Stderr, "Serving history on http://%s (Ctrl+C to stop)\n", mirrorAddr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
