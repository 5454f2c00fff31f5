package cli

import (
	"github.com/spf13/cobra"
)

// VariationView is one row of the vars listing.
type VariationView struct {
	Name    string `json:"name"`
	Parent  string `json:"parent,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// NewVarsCommand creates the vars command.
func NewVarsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "vars",
		Short:         "List variations and their parents",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVars(rootOpts, cmd)
		},
	}
}

func runVars(opts *RootOptions, cmd *cobra.Command) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	list, err := sess.store.ListVariations(cmd.Context())
	if err != nil {
		return reportError(sess.out, "vars", err)
	}

	names := make(map[int64]string, len(list))
	for _, v := range list {
		names[v.ID] = v.Name
	}
	views := make([]VariationView, len(list))
	for i, v := range list {
		views[i] = VariationView{Name: v.Name, Parent: names[v.ParentID], Comment: v.Comment}
	}

	if sess.out.Format == "json" {
		return sess.out.Success(views)
	}
	renderVariations(sess.out.Writer, views)
	return nil
}
