package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Database string
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one deadline sweep pass",
		Long: `Scan for open questions whose deadline has passed and that have not
been notified yet, and notify the assignee and the requester of each,
exactly once per question. Intended to be invoked by a scheduler (cron,
systemd timer); an empty pass is a normal outcome.

Example:
  askflow sweep --db ./askflow.db
  askflow sweep --db ./askflow.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSweep(opts *SweepOptions, cmd *cobra.Command) error {
	configureLogging(opts.RootOptions)

	eng, st, err := openEngine(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	report, err := eng.SweepDeadlines(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "deadline sweep failed", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if opts.Format == "json" {
		return formatter.Success(report)
	}

	if report.Processed == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No overdue questions.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Notified %d overdue question(s): %s\n",
		report.Processed, strings.Join(report.QuestionIDs, ", "))
	return nil
}
