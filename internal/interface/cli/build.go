package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/neilberkman/qbench/internal/core/browser"
	"github.com/neilberkman/qbench/internal/core/history"
	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/progress"
	"github.com/neilberkman/qbench/internal/core/report"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/pkg/buildbench"
	"github.com/spf13/cobra"
)

var (
	buildCompiler   string
	buildStd        string
	buildOptim      string
	buildLib        string
	buildJSON       bool
	buildNoProgress bool
	buildOpen       bool
	buildDetail     bool
)

var buildCmd = &cobra.Command{
	Use:   "build <file> [file...]",
	Short: "Benchmark the build time of one or more source files",
	Long: `Submit each source file as a tab and compare their build times.

Every file becomes one tab titled after its base name. Compiler options
default to the configured defaults and can be overridden for all tabs.

Examples:
  qbench build cstdio.cpp iostream.cpp
  qbench build --compiler gcc-10.1 --std 17 --optim 2 a.cpp b.cpp
  qbench build --json main.cpp`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addOptionFlags(buildCmd, &buildCompiler, &buildStd, &buildOptim, &buildLib)
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "Print the result as JSON")
	buildCmd.Flags().BoolVar(&buildNoProgress, "no-progress", false, "Do not draw the progress bar")
	buildCmd.Flags().BoolVar(&buildOpen, "open", false, "Open the build page in a browser")
	buildCmd.Flags().BoolVar(&buildDetail, "detail", false, "Include includes, assembly and preprocessed output in JSON")
}

func addOptionFlags(cmd *cobra.Command, compiler, std, optim, lib *string) {
	cmd.Flags().StringVar(compiler, "compiler", "", "Compiler (e.g. clang-9.0, gcc-10.1)")
	cmd.Flags().StringVar(std, "std", "", "C++ standard (11, 14, 17, 20)")
	cmd.Flags().StringVar(optim, "optim", "", "Optimization level (0, 1, 2, 3, G, F, S)")
	cmd.Flags().StringVar(lib, "lib", "", "Standard library (gnu, llvm)")
}

func flagOptions(compiler, std, optim, lib string) models.Options {
	return cfg.Defaults.Merge(models.Options{
		Compiler:   compiler,
		CppVersion: std,
		Optim:      optim,
		Lib:        lib,
	})
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts := flagOptions(buildCompiler, buildStd, buildOptim, buildLib)
	if err := opts.Validate(); err != nil {
		return err
	}

	tabs, err := history.ReadSources(args, opts)
	if err != nil {
		return err
	}

	s := newSession()
	if err := s.SetTabs(tabs); err != nil {
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

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	outcome, resp, err := submit(ctx, s, newClient(), !buildNoProgress && !buildJSON)
	recordSubmit(rec, outcome, s, resp)

	var tooLarge *session.PayloadTooLargeError
	if errors.As(err, &tooLarge) {
		return errors.New(s.Notice())
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	return finishBuild(s, buildJSON, buildDetail, buildOpen)
}

// submit runs a submission, drawing the estimator on stderr when asked
func submit(ctx context.Context, s *session.Session, b session.Builder, showProgress bool) (session.Outcome, *buildbench.Response, error) {
	cb := &capturingBuilder{Builder: b}
	if showProgress {
		r := progress.NewReporter(os.Stderr, fmt.Sprintf("building %d tabs", s.Len()))
		s.OnProgress(r.Update)
		defer r.Finish()
	}
	outcome, err := s.Submit(ctx, cb)
	s.OnProgress(nil)
	return outcome, cb.last, err
}

// finishBuild prints the session and optionally opens its page
func finishBuild(s *session.Session, asJSON, detail, open bool) error {
	pageURL := ""
	if s.Identity() != "" {
		pageURL = buildbench.PageURL(cfg.ServiceURL, s.Identity())
	}

	d := report.Detail{}
	if detail {
		d = report.Full
	}
	r := report.FromSession(s, pageURL, d)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return err
		}
	} else if err := r.WriteText(os.Stdout); err != nil {
		return err
	}

	if open && pageURL != "" {
		if err := browser.New(cfg.BrowserCommand).Open(pageURL); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}
	}
	return nil
}
