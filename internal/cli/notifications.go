package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/askflow/internal/model"
)

// NotificationsOptions holds flags for the notifications command.
type NotificationsOptions struct {
	*RootOptions
	Database string
}

// NewNotificationsCommand creates the notifications command.
//
// The CLI is a trusted operator surface, so it reads as an admin
// principal; authorization for end users happens in whatever transport
// fronts the engine.
func NewNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NotificationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "notifications <user-id>",
		Short: "List a user's notifications",
		Long: `List the durable notification records of a user, oldest first.

Example:
  askflow notifications u-alice --db ./askflow.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotifications(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runNotifications(opts *NotificationsOptions, userID string, cmd *cobra.Command) error {
	configureLogging(opts.RootOptions)

	eng, st, err := openEngine(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	operator := &model.Principal{ID: "cli-operator", IsAdmin: true}
	notifications, err := eng.ListNotifications(cmd.Context(), operator, userID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list notifications", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(notifications)
	}

	if len(notifications) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No notifications for %s.\n", userID)
		return nil
	}
	for _, n := range notifications {
		read := " "
		if n.IsRead {
			read = "r"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %-28s question=%s at=%s\n",
			read, n.Type, n.RelatedID, n.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
