package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/pkg/buildbench"
	"github.com/spf13/cobra"
)

var (
	getOffline bool
	getRebuild bool
	getForce   bool
	getJSON    bool
	getDetail  bool
	getOpen    bool
)

var getCmd = &cobra.Command{
	Use:   "get <id|url>",
	Short: "Show a stored build",
	Long: `Fetch a build by its id or build page URL and print its results.

With --offline the build is read from the local history instead of the
service. With --rebuild the fetched tabs are submitted again; add --force
to bypass the service's cached results.

Examples:
  qbench get 5e1f3c2a
  qbench get https://build-bench.com/b/5e1f3c2a
  qbench get 5e1f3c2a --rebuild --force`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().BoolVar(&getOffline, "offline", false, "Read the build from the local history")
	getCmd.Flags().BoolVar(&getRebuild, "rebuild", false, "Submit the fetched tabs again")
	getCmd.Flags().BoolVar(&getForce, "force", false, "With --rebuild, ignore cached results on the service")
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Print the result as JSON")
	getCmd.Flags().BoolVar(&getDetail, "detail", false, "Include includes, assembly and preprocessed output in JSON")
	getCmd.Flags().BoolVar(&getOpen, "open", false, "Open the build page in a browser")
}

func runGet(cmd *cobra.Command, args []string) error {
	id, ok := buildbench.ParseIdentity(args[0])
	if !ok {
		return fmt.Errorf("not a build id or build page URL: %s", args[0])
	}
	if getForce && !getRebuild {
		return fmt.Errorf("--force only applies together with --rebuild")
	}
	if getOffline && getRebuild {
		return fmt.Errorf("--rebuild needs the build service and cannot be combined with --offline")
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

	var builder session.Builder = newClient()
	if getOffline {
		if rec == nil {
			return fmt.Errorf("--offline needs the local history")
		}
		builder = rec
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	s := newSession()
	cb := &capturingBuilder{Builder: builder}

	var spinner *Spinner
	if !getJSON {
		spinner = NewSpinner(fmt.Sprintf("Fetching build %s...", id))
		spinner.Start()
	}
	_, err = s.Load(ctx, cb, id)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.Notice(), err)
	}
	if !getOffline {
		recordLoad(rec, id, cb.last)
	}

	if getRebuild {
		s.SetForce(getForce)
		outcome, resp, err := submit(ctx, s, builder, !getJSON)
		recordSubmit(rec, outcome, s, resp)
		if err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}
	}

	return finishBuild(s, getJSON, getDetail, getOpen)
}
