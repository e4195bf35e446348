// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/primedigitaltech/azon-seeker/internal/browser"
	"github.com/primedigitaltech/azon-seeker/internal/commit"
	"github.com/primedigitaltech/azon-seeker/internal/config"
	"github.com/primedigitaltech/azon-seeker/internal/export"
	"github.com/primedigitaltech/azon-seeker/internal/monitoring"
	"github.com/primedigitaltech/azon-seeker/internal/remote"
	"github.com/primedigitaltech/azon-seeker/internal/storage"
	"github.com/primedigitaltech/azon-seeker/internal/taskqueue"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/internal/worker"
)

// Version is set at build time
var Version = "dev"

// Options carry collaborators that are not built from configuration.
// Store and Exporter override the configured ones when set.
type Options struct {
	Tabs      browser.Tabs
	Evaluator remote.Evaluator
	Executor  remote.Executor
	Bridge    *remote.Bridge
	Store     storage.Store
	Exporter  export.Service
}

// Engine owns every long lived component
type Engine struct {
	Config    *config.Config
	Logger    utils.Logger
	Metrics   *monitoring.Metrics
	Health    *monitoring.HealthManager
	Store     storage.Store
	Exporter  export.Service
	Queue     *taskqueue.Queue
	Workers   *worker.Registry
	Amazon    *commit.AmazonSession
	Homedepot *commit.HomedepotSession
	Lowes     *commit.LowesSession

	limiter *utils.RateLimiter
	closers []func() error
}

// Open launches or attaches to the configured browser and builds the engine
// around it
func Open(ctx context.Context, cfg *config.Config, logger utils.Logger) (*Engine, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	provider, err := browser.NewChromeProvider(&cfg.Browser, logger)
	if err != nil {
		return nil, err
	}
	bridge := remote.NewBridge(cfg.Executor.BridgeTimeout)
	provider.RegisterBridge(bridge)

	e, err := New(ctx, cfg, logger, Options{Tabs: provider, Evaluator: provider, Bridge: bridge})
	if err != nil {
		provider.Close()
		return nil, err
	}
	e.closers = append(e.closers, provider.Close)
	return e, nil
}

// New builds the engine from cfg and opts
func New(ctx context.Context, cfg *config.Config, logger utils.Logger, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	e := &Engine{
		Config:  cfg,
		Logger:  logger,
		Metrics: monitoring.NewMetrics(cfg.Metrics.MetricsConfig),
		Health:  monitoring.NewHealthManager(Version, 0),
	}

	exec := opts.Executor
	if exec == nil {
		if opts.Evaluator == nil {
			return nil, fmt.Errorf("an executor or an evaluator is required")
		}
		exec = remote.NewTabExecutor(opts.Evaluator,
			remote.WithDefaultTimeout(cfg.Executor.Timeout),
			remote.WithLogger(logger.WithField("component", "remote")),
			remote.WithObserver(e.Metrics),
		)
	}
	bridge := opts.Bridge
	if bridge == nil {
		bridge = remote.NewBridge(cfg.Executor.BridgeTimeout)
	}

	e.Store = opts.Store
	if e.Store == nil {
		store, err := storage.Open(ctx, cfg.StorageOptions(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		e.Store = store
		e.closers = append(e.closers, store.Close)
	}

	e.Exporter = opts.Exporter
	if e.Exporter == nil {
		exporter, err := newExporter(cfg.Export, logger)
		if err != nil {
			e.Close(ctx)
			return nil, err
		}
		if exporter != nil {
			e.Exporter = exporter
			if c, ok := exporter.(io.Closer); ok {
				e.closers = append(e.closers, c.Close)
			}
		}
	}

	walkerOpts := cfg.WalkerOptions()
	e.limiter = utils.NewRateLimiter(cfg.Executor.RateLimit, cfg.Executor.Burst)
	walkerOpts.Limiter = e.limiter
	e.Workers = worker.NewRegistry(worker.Deps{
		Tabs:     opts.Tabs,
		Executor: exec,
		Bridge:   bridge,
		Walker:   walkerOpts,
		MaxPages: cfg.Workers.MaxPages,
		Logger:   logger,
		Observer: e.Metrics,
	})
	e.Queue = taskqueue.New(
		taskqueue.WithLogger(logger),
		taskqueue.WithObserver(e.Metrics),
	)

	commitOpts := commit.Options{
		Store:       e.Store,
		Exporter:    e.Exporter,
		Interval:    cfg.Commit.Interval,
		StopOnError: cfg.Commit.StopOnError,
		Logger:      logger,
		Observer:    e.Metrics,
	}
	e.Amazon = commit.NewAmazonSession(e.Workers.Amazon, commitOpts)
	e.Homedepot = commit.NewHomedepotSession(e.Workers.Homedepot, commitOpts)
	e.Lowes = commit.NewLowesSession(e.Workers.Lowes, commitOpts)

	e.Health.RegisterCheck(monitoring.StoreHealthCheck(func(ctx context.Context) error {
		var probe interface{}
		_, err := e.Store.Get(ctx, storage.KeyAmazonSearchItems, &probe)
		return err
	}))
	e.Health.RegisterCheck(monitoring.GoroutineHealthCheck(10000))

	return e, nil
}

func newExporter(cfg config.ExportConfig, logger utils.Logger) (export.Service, error) {
	switch cfg.Type {
	case config.ExportHTTP:
		return export.NewHTTPService(cfg.BaseURL, cfg.Timeout, logger)
	case config.ExportExcel:
		return export.NewExcelService(cfg.ExcelPath, logger)
	}
	return nil, nil
}

// Commit flushes the buffers of every site
func (e *Engine) Commit(ctx context.Context) error {
	return errors.Join(
		e.Amazon.Commit(ctx),
		e.Homedepot.Commit(ctx),
		e.Lowes.Commit(ctx),
	)
}

// ApplyConfig applies the settings that can change while running: the log
// level and the remote call rate
func (e *Engine) ApplyConfig(cfg *config.Config) {
	e.limiter.SetRate(cfg.Executor.RateLimit)
	if l, ok := e.Logger.(interface{ SetLevel(string) error }); ok {
		if err := l.SetLevel(cfg.Logging.Level); err != nil {
			e.Logger.Warnf("log level not changed: %v", err)
		}
	}
}

// Close stops the workers, waits for the running task and releases every
// resource in reverse order of creation
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if e.Workers != nil {
		e.Workers.StopAll()
	}
	if e.Queue != nil {
		e.Queue.Clear()
		if err := e.Queue.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if e.Amazon != nil {
		e.Amazon.Close()
		e.Homedepot.Close()
		e.Lowes.Close()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
