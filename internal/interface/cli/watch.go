package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/neilberkman/qbench/internal/core/history"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/internal/core/watch"
	"github.com/spf13/cobra"
)

var (
	watchCompiler string
	watchStd      string
	watchOptim    string
	watchLib      string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <file> [file...]",
	Short: "Rebuild whenever a source file is saved",
	Long: `Benchmark the given files, then watch them and benchmark again after
every save. Press Ctrl+C to stop.

Examples:
  qbench watch cstdio.cpp iostream.cpp
  qbench watch --debounce 1s --compiler gcc-10.1 main.cpp`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addOptionFlags(watchCmd, &watchCompiler, &watchStd, &watchOptim, &watchLib)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before rebuilding")
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts := flagOptions(watchCompiler, watchStd, watchOptim, watchLib)
	if err := opts.Validate(); err != nil {
		return err
	}

	database, rec, err := openHistory()
	if err != nil {
		return err
	}
	if database != nil {
		defer func() {
			_ = database.Close()
		}()
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := newSession()
	client := newClient()

	rebuild := func(ctx context.Context, changed []string) error {
		if len(changed) > 0 {
			names := make([]string, len(changed))
			for i, c := range changed {
				names[i] = filepath.Base(c)
			}
			fmt.Fprintf(os.Stderr, "\nChanged: %v\n", names)
		}

		tabs, err := history.ReadSources(args, opts)
		if err != nil {
			return err
		}
		if err := s.SetTabs(tabs); err != nil {
			return err
		}

		outcome, resp, err := submit(ctx, s, client, true)
		recordSubmit(rec, outcome, s, resp)
		var tooLarge *session.PayloadTooLargeError
		if errors.As(err, &tooLarge) {
			fmt.Fprintln(os.Stderr, s.Notice())
			return nil
		}
		if err != nil {
			return err
		}
		return finishBuild(s, false, false, false)
	}

	if err := rebuild(ctx, nil); err != nil {
		slog.Error("initial build failed", "error", err)
	}

	w, err := watch.New(args, rebuild, watchDebounce)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Watching %d file(s). Press Ctrl+C to stop.\n", len(args))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := w.Stats()
	fmt.Fprintf(os.Stderr, "\nStopped after %d rebuild(s), %d error(s)\n", stats.Rebuilds, stats.Errors)
	return nil
}
