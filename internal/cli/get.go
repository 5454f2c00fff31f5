package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ccdb/internal/engine"
	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/textfile"
)

// GetResult is the JSON payload of one request.
type GetResult struct {
	Request    string          `json:"request"`
	Assignment *AssignmentView `json:"assignment,omitempty"`
	Error      *CLIError       `json:"error,omitempty"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <request>...",
		Short: "Print the constants that apply to a run",
		Long: `Print the constants that apply to a run.

A request is /path/to/table[:run[:variation[:time]]]. Omitted parts take
--run and --variation (or their config values). A time such as 2024-05
ignores assignments created after the end of that period.

Example:
  ccdb get /test/test_vars/test_table:100
  ccdb get /test/test_vars/test_table::mc:2024-05-01 --format json
  ccdb get /test/test_vars/test_table:100 --dump > gains.txt`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args, cmd)
		},
	}

	cmd.Flags().Int64P("run", "r", 0, "run used when a request names none")
	cmd.Flags().StringP("variation", "v", "", "variation used when a request names none")
	cmd.Flags().Bool("dump", false, "print rows as ingest text (comment lines, then columnar data)")

	return cmd
}

func runGet(opts *RootOptions, args []string, cmd *cobra.Command) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	defaults := engine.RequestDefaults{Run: sess.cfg.Run, Variation: sess.cfg.Variation}
	queries := make([]engine.Query, len(args))
	for i, arg := range args {
		req, err := model.ParseRequest(arg)
		if err != nil {
			return reportError(sess.out, "get", err)
		}
		queries[i] = engine.RequestQuery(req, defaults)
	}

	results, err := sess.index.LookupMany(cmd.Context(), queries)
	if err != nil {
		return reportError(sess.out, "get", err)
	}

	// A single request reports its error directly.
	if len(results) == 1 && results[0].Err != nil {
		return reportError(sess.out, "get", results[0].Err)
	}

	failed, missing, backend := 0, 0, false
	countFailure := func(err error) {
		failed++
		if model.IsNoApplicable(err) {
			missing++
		}
		if model.CategoryOf(err) == model.CategoryBackend {
			backend = true
		}
	}
	if sess.out.Format == "json" {
		payload := make([]GetResult, len(results))
		for i, r := range results {
			payload[i] = GetResult{Request: args[i]}
			if r.Err != nil {
				countFailure(r.Err)
				payload[i].Error = errorOf(r.Err)
				continue
			}
			view := viewOf(r.Assignment, true)
			payload[i].Assignment = &view
		}
		if len(payload) == 1 {
			if err := sess.out.Success(payload[0].Assignment); err != nil {
				return err
			}
		} else if err := sess.out.Success(payload); err != nil {
			return err
		}
	} else {
		dump, _ := cmd.Flags().GetBool("dump")
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(sess.out.Writer)
			}
			if r.Err != nil {
				countFailure(r.Err)
				fmt.Fprintf(sess.out.Writer, "%s: %v\n", args[i], r.Err)
				continue
			}
			if dump {
				if err := dumpAssignment(sess.out.Writer, r.Assignment); err != nil {
					return WrapExitError(ExitCommandError, "get", err)
				}
				continue
			}
			renderAssignment(sess.out.Writer, r.Assignment)
		}
	}

	if failed > 0 {
		code := ExitFailure
		if backend {
			code = ExitCommandError
		}
		if missing == failed {
			return NewExitError(code, fmt.Sprintf("get: no applicable assignment for %d of %d request(s)", failed, len(results)))
		}
		return NewExitError(code, fmt.Sprintf("get: %d of %d request(s) failed", failed, len(results)))
	}
	return nil
}

// dumpAssignment writes a in a form add can read back.
func dumpAssignment(w io.Writer, a *model.Assignment) error {
	var comments []string
	if a.Comment != "" {
		comments = []string{a.Comment}
	}
	return textfile.Write(w, a.Values, comments)
}
