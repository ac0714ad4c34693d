package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/neilberkman/qbench/internal/core/config"
	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/neilberkman/qbench/internal/core/history"
	"github.com/neilberkman/qbench/internal/core/progress"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/pkg/buildbench"
	"github.com/spf13/cobra"
)

var (
	dbPath      string
	configDir   string
	serviceURL  string
	verbose     bool
	noHistory   bool
	versionInfo string
	version     = "dev"

	cfg *config.Config
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(v, commit, date string) {
	version = v
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "qbench",
	Short: "Terminal client for the build-bench C++ build benchmark service",
	Long: `qbench - compare C++ build times from your terminal

Edit several versions of a translation unit side by side, submit them to a
build-bench service, and compare how long each takes to compile. Builds can
be shared as links, exported to Compiler Explorer and kept in a local history.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", db.DefaultPath(), "History database path")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", config.Dir(), "Configuration directory")
	rootCmd.PersistentFlags().StringVar(&serviceURL, "url", "", "Build service URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record builds in the local history")
}

// setup loads configuration and installs the default logger
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadFrom(configDir)
	if err != nil {
		return err
	}
	if serviceURL != "" {
		cfg.ServiceURL = serviceURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// The TUI owns the terminal, so it logs to a file instead
	var w io.Writer = os.Stderr
	if isTUI(cmd) && cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err == nil {
			if f, err := os.OpenFile(cfg.Dir+string(os.PathSeparator)+"qbench.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
				w = f
			}
		}
	}
	slog.SetDefault(newLogger(w, cfg.LogLevel, verbose))
	return nil
}

func isTUI(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd == tuiCmd || cmd == openCmd
}

func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	logLevel := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func newClient() *buildbench.Client {
	return buildbench.NewClient(cfg.ServiceURL, cfg.RequestTimeout,
		buildbench.WithUserAgent("qbench/"+version),
		buildbench.WithLogger(slog.Default()),
	)
}

func newSession() *session.Session {
	return session.New(
		session.WithDefaultOptions(cfg.Defaults),
		session.WithMaxCodeSize(cfg.MaxCodeSize),
		session.WithTooLargeTemplate(cfg.TooLargeTemplate),
		session.WithProgress(progress.New(cfg.ProgressInterval, cfg.ProgressDuration)),
	)
}

// openHistory opens the history database, or returns nils with --no-history
func openHistory() (*db.DB, *history.Recorder, error) {
	if noHistory {
		return nil, nil, nil
	}
	database, err := db.New(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, history.New(database), nil
}

// recordSubmit saves a finished submission in the history, logging rather
// than failing the command when that is not possible
func recordSubmit(rec *history.Recorder, outcome session.Outcome, s *session.Session, resp *buildbench.Response) {
	if rec == nil {
		return
	}
	if _, err := rec.RecordSubmit(outcome, s.Tabs(), resp); err != nil {
		slog.Warn("failed to record build in history", "error", err)
	}
}

// recordLoad saves a build fetched from the service in the history
func recordLoad(rec *history.Recorder, id string, resp *buildbench.Response) {
	if rec == nil {
		return
	}
	if _, err := rec.RecordLoad(id, resp); err != nil {
		slog.Warn("failed to record build in history", "id", id, "error", err)
	}
}
