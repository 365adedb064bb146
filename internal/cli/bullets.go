package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// textCommand builds a command that runs one engine call and prints its
// reply.
func textCommand(opts *RootOptions, use, short string, args cobra.PositionalArgs, run func(cmd *cobra.Command, e *engine, args []string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.engine(cmd)
			if err != nil {
				return err
			}
			resp, err := run(cmd, e, args)
			if err != nil {
				return WrapExitError(ExitFailure, cmd.Name()+" failed", err)
			}
			if resp != "" {
				fmt.Fprintln(cmd.OutOrStdout(), resp)
			}
			return nil
		},
	}
}

func newAddCommand(opts *RootOptions) *cobra.Command {
	return textCommand(opts, "add <nick> <text>...", "Write a bullet for nick", cobra.MinimumNArgs(2),
		func(cmd *cobra.Command, e *engine, args []string) (string, error) {
			return e.bullets.CreateNote(cmd.Context(), args[0], strings.Join(args[1:], " "))
		})
}

func newListCommand(opts *RootOptions) *cobra.Command {
	return textCommand(opts, "list <nick>", "List nick's unsent bullets", cobra.ExactArgs(1),
		func(cmd *cobra.Command, e *engine, args []string) (string, error) {
			return e.bullets.ListNotes(cmd.Context(), args[0])
		})
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return textCommand(opts, "delete <nick> <index>...", "Delete unsent bullets by their list position", cobra.MinimumNArgs(2),
		func(cmd *cobra.Command, e *engine, args []string) (string, error) {
			return e.bullets.DeleteNotes(cmd.Context(), args[0], strings.Join(args[1:], " "))
		})
}

func newRegisterCommand(opts *RootOptions) *cobra.Command {
	return textCommand(opts, "register <nick> <name>...", "Set the name shown on nick's digest section", cobra.MinimumNArgs(2),
		func(cmd *cobra.Command, e *engine, args []string) (string, error) {
			return e.bullets.RegisterDisplayName(cmd.Context(), args[0], strings.Join(args[1:], " "))
		})
}

func newRecipientsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipients",
		Short: "Manage the digest distribution list",
	}
	cmd.AddCommand(
		textCommand(opts, "add <address>...", "Add addresses; prefix with ! for a primary addressee", cobra.MinimumNArgs(1),
			func(cmd *cobra.Command, e *engine, args []string) (string, error) {
				return e.bullets.AddRecipients(cmd.Context(), strings.Join(args, " "))
			}),
		textCommand(opts, "remove <address>...", "Remove addresses", cobra.MinimumNArgs(1),
			func(cmd *cobra.Command, e *engine, args []string) (string, error) {
				return e.bullets.RemoveRecipients(cmd.Context(), strings.Join(args, " "))
			}),
		textCommand(opts, "list", "Show the distribution list", cobra.NoArgs,
			func(cmd *cobra.Command, e *engine, _ []string) (string, error) {
				return e.bullets.ListRecipients(cmd.Context())
			}),
	)
	return cmd
}

func newDigestCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Preview, send or mark sent the digest",
	}
	cmd.AddCommand(
		textCommand(opts, "preview", "Print the digest without sending it", cobra.NoArgs,
			func(cmd *cobra.Command, e *engine, _ []string) (string, error) {
				return e.compiler.Compile(cmd.Context())
			}),
		textCommand(opts, "send", "Send the digest now and mark its bullets sent", cobra.NoArgs,
			func(cmd *cobra.Command, e *engine, _ []string) (string, error) {
				sink, err := opts.sink(cmd.Context(), e.log)
				if err != nil {
					return "", err
				}
				n, err := e.compiler.Send(cmd.Context(), sink)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Marked %d bullets sent.", n), nil
			}),
		textCommand(opts, "mark-sent", "Mark every unsent bullet sent without delivering anything", cobra.NoArgs,
			func(cmd *cobra.Command, e *engine, _ []string) (string, error) {
				n, err := e.compiler.MarkAllSent(cmd.Context())
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Marked %d bullets sent.", n), nil
			}),
	)
	return cmd
}
