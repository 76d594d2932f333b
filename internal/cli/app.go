package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/threadstate/internal/clock"
	"github.com/roach88/threadstate/internal/config"
	"github.com/roach88/threadstate/internal/disappearing"
	"github.com/roach88/threadstate/internal/logging"
	"github.com/roach88/threadstate/internal/metrics"
	"github.com/roach88/threadstate/internal/outbox"
	"github.com/roach88/threadstate/internal/store"
	"github.com/roach88/threadstate/internal/verification"
)

// app wires the components a command needs from resolved configuration.
type app struct {
	ctx      context.Context
	cfg      *config.Config
	logger   zerolog.Logger
	clock    clock.Clock
	store    *store.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	outbox   *outbox.Outbox
	configs  *disappearing.Store
	audit    *verification.AuditLog
	out      *OutputFormatter
}

// clockFactory is replaced in tests for deterministic timestamps.
var clockFactory = func() clock.Clock { return clock.System{} }

func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}

	level := cfg.Log.Level
	if opts.Verbose && logging.ParseLevel(level) > zerolog.DebugLevel {
		level = "debug"
	}
	logger := logging.New(cmd.ErrOrStderr(), level, cfg.Log.Format)

	st, err := store.Open(cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	c := clockFactory()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	ob := outbox.New(c)

	configs, err := disappearing.NewStore(cfg.Cache.Size,
		disappearing.WithLogger(logger),
		disappearing.WithMetrics(m),
		disappearing.WithOutbox(ob),
	)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create configuration store", err)
	}

	return &app{
		ctx:      cmd.Context(),
		cfg:      cfg,
		logger:   logger,
		clock:    c,
		store:    st,
		registry: registry,
		metrics:  m,
		outbox:   ob,
		configs:  configs,
		audit: verification.New(c,
			verification.WithLogger(logger),
			verification.WithMetrics(m),
			verification.WithOutbox(ob),
		),
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close database")
	}
}

func (a *app) read(fn func(*store.Tx) error) error {
	return a.store.Read(a.context(), fn)
}

func (a *app) write(fn func(*store.Tx) error) error {
	return a.store.Write(a.context(), fn)
}

func (a *app) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// failed wraps an operation error as an ExitFailure.
func failed(message string, err error) error {
	return WrapExitError(ExitFailure, message, err)
}
