package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ccdb/internal/config"
	"github.com/roach88/ccdb/internal/engine"
	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/store"
	"github.com/roach88/ccdb/internal/variation"
)

// session is everything a command needs to talk to the database.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	engine *engine.Engine
	index  *engine.Index
	clock  model.Clock
	out    *OutputFormatter
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openSession loads configuration with the command's flags on top and
// opens the configured store. The caller must Close the session.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
	if err != nil {
		_ = out.Fail(&CLIError{Code: "CONFIG", Message: err.Error()})
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level, _ := cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if cfg.File != "" {
		out.VerboseLog("Using config file %s", cfg.File)
	}
	logger.Debug("opening database", "connection", cfg.Connection)
	st, err := store.OpenURL(cfg.Connection)
	if err != nil {
		_ = out.Fail(&CLIError{
			Code:    string(model.ErrCodeBackend),
			Message: err.Error(),
			Details: map[string]string{"connection": cfg.Connection},
		})
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = model.SystemClock{}
	}
	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithClock(clock),
		engine.WithStrictCellTypes(cfg.StrictCellTypes),
	}
	if opts.IDs != nil {
		engOpts = append(engOpts, engine.WithIDGenerator(opts.IDs))
	}

	return &session{
		cfg:    cfg,
		logger: logger,
		store:  st,
		engine: engine.New(st, engOpts...),
		index:  engine.NewIndex(st, logger),
		clock:  clock,
		out:    out,
	}, nil
}

// setParent links name under parent with the cycle check and the update in
// one transaction.
func (s *session) setParent(ctx context.Context, name, parent string) (model.Variation, error) {
	var v model.Variation
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		v, err = variation.NewResolver(tx, s.clock).SetParent(ctx, name, parent)
		return err
	})
	return v, err
}

func (s *session) Close() error {
	return s.store.Close()
}
