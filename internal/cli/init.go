package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/askflow/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Database string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or migrate the database",
		Long: `Create the SQLite database if it does not exist and bring its schema
up to the current version. Safe to run repeatedly.

Example:
  askflow init --db ./askflow.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(opts.RootOptions)

			st, err := store.Open(opts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer closeStore(st)

			fmt.Fprintf(cmd.OutOrStdout(), "database ready: %s\n", opts.Database)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}
