package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/schema"
	"github.com/roach88/ccdb/internal/store"
)

// MktblOptions holds flags for the mktbl command.
type MktblOptions struct {
	*RootOptions
	From    string
	Comment string
}

// MktblResult is the JSON payload of mktbl.
type MktblResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped,omitempty"`
}

// NewMktblCommand creates the mktbl command.
func NewMktblCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MktblOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mktbl [<table-path> <column[:type]>...]",
		Short: "Create type tables",
		Long: `Create a type table from inline column specs, or every table defined in
CUE files with --from. Column types are int, uint, long, ulong, double,
string and bool; an omitted type means double. Directories are created as
needed. Tables that already exist are skipped when loading from CUE.

A CUE definition looks like:

  table: "/test/test_vars/test_table": {
      comment: "test table"
      columns: [{name: "x"}, {name: "y"}, {name: "label", type: "string"}]
  }

Example:
  ccdb mktbl /test/test_vars/test_table x y z -c "test table"
  ccdb mktbl --from ./tables`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMktbl(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "CUE file or directory of table definitions")
	cmd.Flags().StringVarP(&opts.Comment, "comment", "c", "", "table comment (inline form only)")

	return cmd
}

func runMktbl(opts *MktblOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	var (
		tables   []model.TypeTable
		fromCUE  = opts.From != ""
		buildErr error
	)
	switch {
	case fromCUE && len(args) > 0:
		return NewExitError(ExitCommandError, "mktbl: --from cannot be combined with inline columns")
	case fromCUE:
		tables, buildErr = loadDefinitions(opts.From)
	case len(args) < 2:
		return NewExitError(ExitCommandError, "mktbl: expected <table-path> <column>... or --from")
	default:
		var t *model.TypeTable
		if t, buildErr = schema.TableFromColumns(args[0], opts.Comment, args[1:]); buildErr == nil {
			tables = []model.TypeTable{*t}
		}
	}
	if buildErr != nil {
		_ = out.Fail(&CLIError{Code: "DEFINITION", Message: buildErr.Error()})
		return WrapExitError(ExitFailure, "mktbl", buildErr)
	}
	out.VerboseLog("Creating %d type table(s)", len(tables))

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	var result MktblResult
	for _, t := range tables {
		created, err := sess.store.CreateTypeTable(cmd.Context(), t, sess.clock.Now())
		if errors.Is(err, store.ErrTableExists) && fromCUE {
			sess.logger.Info("type table exists, skipped", "table", t.Path)
			result.Skipped = append(result.Skipped, t.Path)
			continue
		}
		if err != nil {
			return reportError(sess.out, "mktbl", err)
		}
		sess.logger.Info("type table created", "table", created.Path, "columns", len(created.Columns))
		result.Created = append(result.Created, created.Path)
	}

	if sess.out.Format == "json" {
		return sess.out.Success(result)
	}
	for _, p := range result.Created {
		fmt.Fprintf(sess.out.Writer, "✓ Created %s\n", p)
	}
	for _, p := range result.Skipped {
		fmt.Fprintf(sess.out.Writer, "- Exists %s\n", p)
	}
	return nil
}

// loadDefinitions compiles one CUE file or every CUE file in a directory.
func loadDefinitions(path string) ([]model.TypeTable, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	if info.IsDir() {
		res, errs := schema.LoadDir(path, schema.LoadModeCollectAll)
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return res.Tables, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	tables, err := schema.NewCompiler().CompileSource(path, src)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("definitions: no tables in %s", path)
	}
	return tables, nil
}
