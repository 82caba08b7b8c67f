package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/deliver/internal/compiler"
	"github.com/roach88/deliver/internal/delivery"
	"github.com/roach88/deliver/internal/render"
	"github.com/roach88/deliver/internal/runtime"
	"github.com/roach88/deliver/internal/store"
	"github.com/roach88/deliver/internal/telemetry"
)

// engine is an opened delivery service with the store it runs on.
type engine struct {
	store  *store.Store
	svc    *delivery.Service
	bundle *compiler.Bundle
	logger *slog.Logger

	// shutdown flushes pending spans.
	shutdown func(context.Context) error
}

func (e *engine) Close() error {
	if err := e.shutdown(context.Background()); err != nil {
		e.logger.Warn("failed to flush spans", "error", err)
	}
	return e.store.Close()
}

// newLogger installs a text handler on stderr. --verbose lowers the
// configured level to debug.
func (o *RootOptions) newLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := o.Config.Level()
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openEngine compiles the content directory, opens the database,
// publishes the compiled deliveries and builds the service.
func (o *RootOptions) openEngine(ctx context.Context, cmd *cobra.Command) (*engine, error) {
	cfg := o.Config
	logger := o.newLogger(cmd)

	if cfg.ContentDir == "" {
		return nil, NewExitError(ExitCommandError, "content directory not set: use --specs or DELIVER_SPECS")
	}
	logger.Debug("compiling content", "dir", cfg.ContentDir)
	bundle, errs := compiler.LoadDir(cfg.ContentDir, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, WrapExitError(ExitCommandError, "failed to compile content", errs[0])
	}
	if verrs := compiler.ValidateBundle(bundle); len(verrs) > 0 {
		return nil, WrapExitError(ExitCommandError, "invalid content", verrs[0])
	}
	logger.Debug("content compiled", "items", len(bundle.Items), "tests", len(bundle.Tests), "deliveries", len(bundle.Deliveries))

	logger.Debug("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	for _, d := range bundle.Deliveries {
		if err := st.PutDelivery(ctx, *d); err != nil {
			st.Close()
			return nil, WrapExitError(ExitFailure, fmt.Sprintf("failed to publish delivery %q", d.ID), err)
		}
	}

	tp, shutdown, err := telemetry.Setup(ctx, cfg, "deliver")
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	if cfg.Tracing() {
		logger.Debug("exporting spans", "endpoint", cfg.OTelEndpoint)
	}

	opts := []delivery.Option{
		delivery.WithLogger(logger),
		delivery.WithTracerProvider(tp),
		delivery.WithRenderer(render.NewManager(cfg.Stylesheets(), logger, render.WithTracerProvider(tp))),
		delivery.WithTempDir(cfg.TempDir),
	}
	if cfg.Seed != 0 {
		opts = append(opts, delivery.WithSeeds(delivery.NewSeededSource(cfg.Seed)))
	}
	rt := runtime.NewReference(runtime.NewLibrary(bundle.Items, bundle.Tests))

	return &engine{
		store:    st,
		svc:      delivery.New(st, rt, opts...),
		bundle:   bundle,
		logger:   logger,
		shutdown: shutdown,
	}, nil
}

// openStore opens the database alone, for commands that only read the
// event log.
func (o *RootOptions) openStore() (*store.Store, error) {
	if _, err := os.Stat(o.Config.DBPath); errors.Is(err, os.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", o.Config.DBPath))
	}
	st, err := store.Open(o.Config.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// withEngine opens the engine, runs fn and closes the engine. Errors
// from fn are engine errors unless they already carry an exit code.
func (o *RootOptions) withEngine(cmd *cobra.Command, fn func(context.Context, *engine, *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := o.formatter(cmd)
	e, err := o.openEngine(ctx, cmd)
	if err != nil {
		_ = f.Error(CodeCommand, err.Error(), nil)
		return err
	}
	defer e.Close()

	err = fn(ctx, e, f)
	var exitErr *ExitError
	if err == nil || errors.As(err, &exitErr) {
		return err
	}
	return f.EngineError(err)
}
