package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/zkclaim/internal/claim"
	"github.com/roach88/zkclaim/internal/config"
	"github.com/roach88/zkclaim/internal/metrics"
	"github.com/roach88/zkclaim/internal/poller"
	"github.com/roach88/zkclaim/internal/prover"
	"github.com/roach88/zkclaim/internal/relay"
	"github.com/roach88/zkclaim/internal/store"
	"github.com/roach88/zkclaim/internal/vk"
)

// app is the wired process state shared by the commands.
type app struct {
	cfg       config.Config
	log       *zap.Logger
	store     *store.Store
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	relay     *relay.Client
	artifacts prover.Artifacts
	registrar *vk.Registrar
	orch      *claim.Orchestrator
}

// loadConfig resolves configuration from --config, the dotenv file and the
// environment.
func (o *RootOptions) loadConfig() (config.Config, error) {
	lo := config.LoadOptions{File: o.ConfigFile, EnvFile: o.EnvFile}
	if lo.EnvFile == "" {
		lo.EnvFile = defaultEnvFile
		lo.EnvFileOptional = true
	}
	cfg, err := config.Load(lo)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	return cfg, nil
}

// openLocal loads configuration and opens the store without touching the
// relay settings. Used by commands that only read local state.
func (o *RootOptions) openLocal() (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return o.open(cfg)
}

// openApp loads and validates configuration and wires the full claim
// pipeline.
func (o *RootOptions) openApp() (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	a, err := o.open(cfg)
	if err != nil {
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)
	a.relay = relay.New(cfg.Relay.URL, cfg.Relay.APIKey, cfg.Relay.Timeout, relay.WithLogger(a.log))
	a.artifacts = prover.Artifacts{BuildDir: cfg.Artifacts.BuildDir}

	opts := claim.OptionsFromConfig(cfg)
	a.registrar = vk.NewRegistrar(a.store, a.relay, opts.ProofOptions, a.metrics, a.log)

	p := poller.New(a.relay, poller.Config{
		MaxAttempts:         cfg.Poll.MaxAttempts,
		IntervalDirect:      cfg.Poll.IntervalDirect,
		IntervalAggregating: cfg.Poll.IntervalAggregating,
		TransientBackoff:    cfg.Poll.TransientBackoff,
		MaxWait:             cfg.Poll.MaxWait,
		Aggregate:           cfg.AggregationEnabled(),
	}, poller.WithMetrics(a.metrics), poller.WithLogger(a.log))

	a.orch = claim.New(claim.Deps{
		Prover: &prover.SnarkJS{
			Bin:       cfg.Artifacts.SnarkJS,
			Artifacts: a.artifacts,
			SaveDir:   cfg.Artifacts.ProofsDir,
			Logger:    a.log,
		},
		VKs:       a.artifacts,
		Registrar: a.registrar,
		Submitter: a.relay,
		Poller:    p,
		Receipts:  a.store,
		Runs:      a.store,
		Metrics:   a.metrics,
		Logger:    a.log,
	}, opts)

	a.log.Debug("claim pipeline ready",
		zap.String("relay", cfg.Relay.URL),
		zap.Bool("aggregation", cfg.AggregationEnabled()),
		zap.String("db", cfg.Store.Path))
	return a, nil
}

func (o *RootOptions) open(cfg config.Config) (*app, error) {
	log, err := newLogger(cfg.LogLevel, o.Verbose, cfg.LogPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		_ = log.Sync()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return &app{cfg: cfg, log: log, store: st}, nil
}

// Close releases the store and flushes the logger.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("error closing database", zap.Error(err))
	}
	_ = a.log.Sync()
}

// commandContext derives the run context of cmd: canceled on SIGINT or
// SIGTERM and bounded by --timeout.
func (o *RootOptions) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if o.Timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, o.Timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

// reportError writes err through f and returns the ExitError for it.
// Claim failures exit with ExitFailure; local problems with
// ExitCommandError.
func reportError(f *OutputFormatter, message string, err error) error {
	code := errorCode(err)
	details := errorDetails(err)
	if werr := f.Error(code, message+": "+err.Error(), details); werr != nil {
		return WrapExitError(ExitCommandError, "failed to write output", werr)
	}

	exit := ExitFailure
	var ee *ExitError
	switch {
	case errors.As(err, &ee):
		exit = ee.Code
	case code == CodeConfig, code == CodeStore:
		exit = ExitCommandError
	}
	return WrapExitError(exit, message, err)
}

func errorCode(err error) string {
	switch {
	case config.IsConfigurationError(err):
		return CodeConfig
	case claim.IsValidationError(err):
		return CodeValidation
	case claim.IsLinkageError(err):
		return CodeLinkage
	case vk.IsRegistrationError(err):
		return CodeRegistration
	case claim.IsSubmissionError(err):
		return CodeSubmission
	case poller.IsFailure(err):
		return CodeJobFailed
	case poller.IsTimeout(err):
		return CodeTimeout
	case poller.IsCancelled(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	case errors.Is(err, store.ErrNotFound):
		return CodeStore
	}
	return CodeInternal
}

func errorDetails(err error) map[string]string {
	var pe *claim.PhaseError
	if !errors.As(err, &pe) {
		return nil
	}
	return map[string]string{
		"claimId": pe.ClaimID,
		"role":    pe.Role,
		"stage":   pe.Stage,
	}
}
