package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ccdb/internal/engine"
	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/textfile"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	RunRange  string
	Comment   string
	NameValue bool
}

// AddResult is the JSON payload of a successful add.
type AddResult struct {
	ID         string         `json:"id"`
	Table      string         `json:"table"`
	Variation  string         `json:"variation"`
	RunRange   model.RunRange `json:"run_range"`
	Version    int64          `json:"version"`
	DataHash   string         `json:"data_hash"`
	Rows       int            `json:"rows"`
	Comment    string         `json:"comment,omitempty"`
	Advisories []string       `json:"advisories,omitempty"`
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <table-path> <file> [#comment...]",
		Short: "Add constants to a type table",
		Long: `Add constants read from a text file to a type table.

The file is columnar text (one row per line) unless --name-value is given.
Lines starting with '#' are comments and are appended to the stored comment
unless --no-comments is set. Use '-' to read from standard input.
Everything from the first argument starting with '#' is the comment.

Example:
  ccdb add /test/test_vars/test_table -r 0-100 gains.txt
  ccdb add /test/test_vars/test_table -v mc -r 500- gains.txt #recalibrated after fix`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args, cmd)
		},
	}

	cmd.Flags().StringP("variation", "v", "", "variation name (default from config)")
	cmd.Flags().StringVarP(&opts.RunRange, "runrange", "r", "", "run range: min-max, min- or -max (default all runs)")
	cmd.Flags().StringVarP(&opts.Comment, "comment", "c", "", "comment stored with the constants")
	cmd.Flags().BoolP("no-comments", "n", false, "do not store '#' comment lines found in the file")
	cmd.Flags().Bool("c-comments", false, "treat '//' lines in the file as comments")
	cmd.Flags().BoolVar(&opts.NameValue, "name-value", false, "file is a column of names and a column of values")
	cmd.Flags().Bool("strict-cell-types", false, "reject cells that do not parse as their column type")

	return cmd
}

// splitAddArgs separates positional arguments from trailing '#' comment words.
func splitAddArgs(args []string) (positional []string, comment string) {
	for i, arg := range args {
		if strings.HasPrefix(strings.TrimSpace(arg), "#") {
			words := strings.TrimSpace(strings.Join(args[i:], " "))
			return args[:i], strings.TrimSpace(strings.TrimPrefix(words, "#"))
		}
	}
	return args, ""
}

func runAdd(opts *AddOptions, args []string, cmd *cobra.Command) error {
	positional, argComment := splitAddArgs(args)
	if len(positional) != 2 {
		return NewExitError(ExitCommandError, fmt.Sprintf("add: expected <table-path> <file>, got %d argument(s) before the comment", len(positional)))
	}
	tablePath, file := positional[0], positional[1]

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	req := engine.IngestRequest{
		TablePath:        tablePath,
		RunRangeText:     opts.RunRange,
		Variation:        sess.cfg.Variation,
		CComments:        sess.cfg.CComments,
		Comment:          joinComments(opts.Comment, argComment),
		SkipFileComments: !sess.cfg.PropagateFileComments,
	}
	if req.RunRangeText == "" {
		req.RunRangeText = fmt.Sprintf("0-%d", model.InfiniteRun)
	}
	if opts.NameValue {
		req.Format = textfile.NameValue
	}
	if file == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return reportError(sess.out, "add", model.NewSourceUnreadableError("<stdin>", err))
		}
		req.Contents = string(data)
	} else {
		req.File = file
	}

	sess.out.VerboseLog("Adding %s from %s (variation %s)", tablePath, file, req.Variation)
	a, advisories, err := sess.engine.Ingest(cmd.Context(), req)
	if err != nil {
		return reportError(sess.out, "add", err)
	}

	result := AddResult{
		ID:         a.ID,
		Table:      a.Table.Path,
		Variation:  a.Variation.Name,
		RunRange:   a.RunRange,
		Version:    a.Version,
		DataHash:   a.DataHash,
		Rows:       len(a.Values),
		Comment:    a.Comment,
		Advisories: advisories,
	}
	if sess.out.Format == "json" {
		return sess.out.Success(result)
	}

	for _, adv := range advisories {
		sess.out.Warn(adv)
	}
	fmt.Fprintf(sess.out.Writer, "✓ Added %s version %d for runs %s (variation %s, %d row(s))\n",
		result.Table, result.Version, result.RunRange, result.Variation, result.Rows)
	return nil
}

func joinComments(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
