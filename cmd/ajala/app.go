package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ajala-hq/ajala/pkg/cli"
	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/journal"
	"ajala-hq/ajala/pkg/journal/retention"
	"ajala-hq/ajala/pkg/journal/storage"
	"ajala-hq/ajala/pkg/pipeline"
	"ajala-hq/ajala/pkg/providers/registry"
	"ajala-hq/ajala/pkg/ratelimit"
	"ajala-hq/ajala/pkg/server"
	"ajala-hq/ajala/pkg/telemetry/health"
	"ajala-hq/ajala/pkg/telemetry/logging"
	"ajala-hq/ajala/pkg/telemetry/metrics"
	"ajala-hq/ajala/pkg/telemetry/tracing"
	"ajala-hq/ajala/pkg/tokens"
)

// appOptions selects the optional parts of the runtime.
type appOptions struct {
	// stderr receives logs
	stderr io.Writer

	// watch reloads the settings when the config file changes
	watch bool

	// registryOpts are passed to registry.New
	registryOpts []registry.Option
}

// app is the wired runtime behind the run command: registry, telemetry,
// journal and the pipeline itself.
type app struct {
	cfg      *config.Config
	holder   *config.Holder
	logger   *slog.Logger
	registry *registry.Registry
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	store    journal.Storage
	recorder *journal.Recorder
	pruner   *retention.Pruner
	checker  *health.Checker
	server   *server.Server
	pipeline *pipeline.Pipeline

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	l, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, opts.stderr))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger := l.Slog()
	slog.SetDefault(logger)

	a := &app{
		cfg:     cfg,
		holder:  config.NewHolder(cfgFile, cfg),
		logger:  logger,
		checker: health.New(0),
	}

	regOpts := append([]registry.Option{registry.WithLogger(logger)}, opts.registryOpts...)
	a.registry = registry.New(cfg.Catalog(), regOpts...)
	a.onClose(func(context.Context) error { return a.registry.Close() })
	a.checker.RegisterCheck("providers", health.ProviderCheck(a.registry))

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithEstimator(tokens.New(cfg.Tokens)),
	}

	if limits := cfg.RateLimits(); len(limits) > 0 {
		pipeOpts = append(pipeOpts, pipeline.WithRateLimits(ratelimit.NewSet(limits)))
	}

	if cfg.Telemetry.Metrics.Enabled {
		a.metrics = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
		pipeOpts = append(pipeOpts, pipeline.WithMetrics(a.metrics))
	}

	a.tracer, err = tracing.New(cfg.Telemetry.Tracing,
		tracing.WithServiceVersion(Version),
		tracing.WithGlobal(),
	)
	if err != nil {
		_ = a.close(ctx)
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}
	a.onClose(a.tracer.Shutdown)
	pipeOpts = append(pipeOpts, pipeline.WithTracer(a.tracer))

	if cfg.Journal.Enabled {
		if err := a.openJournal(ctx); err != nil {
			_ = a.close(ctx)
			return nil, err
		}
		pipeOpts = append(pipeOpts, pipeline.WithJournal(a.recorder))
	}

	if opts.watch {
		if err := a.watchConfig(ctx); err != nil {
			_ = a.close(ctx)
			return nil, err
		}
		pipeOpts = append(pipeOpts, pipeline.WithSettingsSource(a.holder.Settings))
	}

	a.pipeline = pipeline.New(cfg.Runtime(), a.registry, pipeOpts...)
	return a, nil
}

func (a *app) openJournal(ctx context.Context) error {
	store, err := storage.Open(a.cfg.Journal)
	if err != nil {
		return cli.NewCommandError("journal", err)
	}
	a.store = store
	a.onClose(func(context.Context) error { return store.Close() })
	a.checker.RegisterCheck("journal", store.Ping)

	a.recorder = journal.NewRecorder(store, journal.DefaultRecorderConfig())
	a.onClose(func(context.Context) error { return a.recorder.Close() })

	a.pruner = retention.NewPruner(store, retention.FromConfig(a.cfg.Journal.Retention))
	if err := a.pruner.Start(ctx); err != nil {
		return cli.NewConfigError("journal.retention.schedule", err.Error())
	}
	a.onClose(func(context.Context) error {
		a.pruner.Stop()
		return nil
	})

	a.logger.Debug("journal opened",
		"backend", a.cfg.Journal.Backend,
		"path", a.cfg.Journal.Path,
	)
	return nil
}

func (a *app) watchConfig(ctx context.Context) error {
	if cfgFile == "" {
		return cli.NewConfigError("watch", "--watch requires --config")
	}
	w, err := config.NewWatcher(a.holder, config.WithWatchLogger(a.logger))
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	go func() {
		if err := w.Watch(ctx); err != nil {
			a.logger.Error("config watcher failed", "error", err)
		}
	}()
	a.onClose(func(context.Context) error { return w.Stop() })
	return nil
}

// serve starts the telemetry server when an address is configured. It
// returns false when there is nothing to serve.
func (a *app) serve() bool {
	addr := a.cfg.Telemetry.Metrics.Listen
	if addr == "" {
		return false
	}

	a.server = server.NewServer(server.Config{
		ListenAddress: addr,
		Version:       versionInfo(),
	}, a.metrics, a.checker)

	srvCtx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start(srvCtx)
	}()
	a.onClose(func(context.Context) error {
		cancel()
		if err := <-errCh; err != nil {
			return fmt.Errorf("telemetry server: %w", err)
		}
		return nil
	})
	return true
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases everything in reverse order of acquisition, so the
// recorder drains before its storage closes.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
