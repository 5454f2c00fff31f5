package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ccdb/internal/model"
)

// MkvarOptions holds flags for the mkvar command.
type MkvarOptions struct {
	*RootOptions
	Parent  string
	Comment string
}

// NewMkvarCommand creates the mkvar command.
func NewMkvarCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MkvarOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mkvar <name>",
		Short: "Create a variation or set its parent",
		Long: `Create a variation if it does not exist.

With --parent the variation inherits constants from the parent, which is
created if needed. A parent that would close a cycle is rejected.

Example:
  ccdb mkvar mc --parent default`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMkvar(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Parent, "parent", "p", "", "parent variation")
	cmd.Flags().StringVarP(&opts.Comment, "comment", "c", "", "variation comment (new variations only)")

	return cmd
}

func runMkvar(opts *MkvarOptions, name string, cmd *cobra.Command) error {
	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	name = model.NormalizeName(name)
	if name == "" {
		return NewExitError(ExitCommandError, "mkvar: variation name is empty")
	}

	ctx := cmd.Context()
	v, err := sess.store.CreateVariation(ctx, name, opts.Comment, sess.clock.Now())
	if err != nil {
		return reportError(sess.out, "mkvar", model.NewBackendError("create variation", err))
	}
	if opts.Parent != "" {
		if v, err = sess.setParent(ctx, name, opts.Parent); err != nil {
			return reportError(sess.out, "mkvar", err)
		}
	}

	if sess.out.Format == "json" {
		return sess.out.Success(v)
	}
	if opts.Parent != "" {
		fmt.Fprintf(sess.out.Writer, "✓ Variation %s (parent %s)\n", v.Name, model.NormalizeName(opts.Parent))
		return nil
	}
	fmt.Fprintf(sess.out.Writer, "✓ Variation %s\n", v.Name)
	return nil
}
