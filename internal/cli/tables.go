package cli

import (
	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tables [directory]",
		Short:         "List type tables",
		Long:          "List type tables under a directory (default: all), ordered by path.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "/"
			if len(args) == 1 {
				dir = args[0]
			}
			return runTables(rootOpts, dir, cmd)
		},
	}
	return cmd
}

func runTables(opts *RootOptions, dir string, cmd *cobra.Command) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	tables, err := sess.store.ListTypeTables(cmd.Context(), dir)
	if err != nil {
		return reportError(sess.out, "tables", err)
	}
	if sess.out.Format == "json" {
		return sess.out.Success(tables)
	}
	renderTables(sess.out.Writer, tables)
	return nil
}
