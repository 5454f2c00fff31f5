package cli

import (
	"github.com/spf13/cobra"
)

// VersOptions holds flags for the vers command.
type VersOptions struct {
	*RootOptions
	Run int64
}

// NewVersCommand creates the vers command.
func NewVersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "vers <table-path>",
		Short: "List the assignment versions of a type table",
		Long: `List every assignment of a type table in one variation, newest first.

Parent variations are not searched. With --run only assignments whose run
range contains that run are listed.

Example:
  ccdb vers /test/test_vars/test_table -v mc --run 100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVers(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringP("variation", "v", "", "variation name (default from config)")
	cmd.Flags().Int64VarP(&opts.Run, "run", "r", 0, "only list ranges containing this run")

	return cmd
}

func runVers(opts *VersOptions, tablePath string, cmd *cobra.Command) error {
	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	var run *int64
	if cmd.Flags().Changed("run") {
		run = &opts.Run
	}

	list, err := sess.index.Versions(cmd.Context(), tablePath, sess.cfg.Variation, run)
	if err != nil {
		return reportError(sess.out, "vers", err)
	}

	if sess.out.Format == "json" {
		views := make([]AssignmentView, len(list))
		for i := range list {
			views[i] = viewOf(&list[i], false)
		}
		return sess.out.Success(views)
	}
	renderVersions(sess.out.Writer, list)
	return nil
}
