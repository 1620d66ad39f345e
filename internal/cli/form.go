package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/askflow/internal/engine"
	"github.com/roach88/askflow/internal/formspec"
	"github.com/roach88/askflow/internal/model"
)

// FormOptions holds flags for the form subcommands.
type FormOptions struct {
	*RootOptions
	Database string
	Project  string
	Question string
	As       string
}

// NewFormCommand creates the form command group.
func NewFormCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Manage answer forms",
	}
	cmd.AddCommand(newFormAttachCommand(rootOpts))
	cmd.AddCommand(newFormCheckCommand(rootOpts))
	return cmd
}

// newFormAttachCommand creates the form attach command.
func newFormAttachCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "attach <template.cue>",
		Short: "Attach a CUE form template to a question",
		Long: `Load an answer-form template from a CUE file and attach it to a
question. Fails once the question has answers: forms are frozen as soon
as a response exists against them.

Example:
  askflow form attach ./templates/incident.cue \
    --db ./askflow.db --project p-1 --question q-1 --as u-alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormAttach(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project id (required)")
	cmd.Flags().StringVar(&opts.Question, "question", "", "question id (required)")
	cmd.Flags().StringVar(&opts.As, "as", "", "acting principal id (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

// newFormCheckCommand creates the form check command, which validates a
// template without touching any database.
func newFormCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <template.cue>",
		Short: "Validate a CUE form template",
		Long: `Validate an answer-form template file against the template schema
without attaching it anywhere.

Example:
  askflow form check ./templates/incident.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := formspec.Load(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid template", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "template %q ok: %d field(s)\n", tmpl.Name, len(tmpl.Fields))
			return nil
		},
	}
	return cmd
}

func runFormAttach(opts *FormOptions, templatePath string, cmd *cobra.Command) error {
	configureLogging(opts.RootOptions)

	tmpl, err := formspec.Load(templatePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid template", err)
	}

	eng, st, err := openEngine(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	fields := make([]engine.FormFieldInput, 0, len(tmpl.Fields))
	for _, f := range tmpl.Fields {
		fields = append(fields, engine.FormFieldInput{
			Label:      f.Label,
			Type:       f.Type,
			IsRequired: f.Required,
			Options:    f.Options,
		})
	}

	principal := &model.Principal{ID: opts.As}
	form, err := eng.AttachForm(cmd.Context(), principal, opts.Project, opts.Question, fields)
	if err != nil {
		return WrapExitError(ExitFailure, "attach form", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "attached form %s (%d fields) to question %s\n",
		form.ID, len(form.Fields), opts.Question)
	return nil
}
