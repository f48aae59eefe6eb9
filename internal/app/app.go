// Package app assembles the newsletter process from its components using fx.
//
// Observability provides the telemetry providers, the Prometheus registry,
// the tracing pipeline and the process logger. Module adds the executor,
// the store and the HTTP server on top of it.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/newsletter/internal/config"
	httpserver "github.com/fyrsmithlabs/newsletter/internal/http"
	"github.com/fyrsmithlabs/newsletter/internal/logging"
	"github.com/fyrsmithlabs/newsletter/internal/storage"
	"github.com/fyrsmithlabs/newsletter/internal/task"
	"github.com/fyrsmithlabs/newsletter/internal/telemetry"
	"github.com/fyrsmithlabs/newsletter/internal/tracing"
)

// Name is the service name stamped on every log record.
const Name = "newsletter"

// redactKeys are span fields never mirrored verbatim into OpenTelemetry.
var redactKeys = []string{"password", "connection_string", "dsn", "token"}

// Observability provides settings, telemetry, the metrics registry, the
// global dispatch and a *zap.Logger that writes through it.
func Observability(settings *config.Settings, env config.Environment) fx.Option {
	return fx.Options(
		fx.Supply(settings, env),
		fx.Provide(
			provideTelemetry,
			provideRegistry,
			provideDispatch,
			provideLogger,
		),
		fx.Invoke(reportTelemetry),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)
}

// Module is the full serving application.
func Module(settings *config.Settings, env config.Environment) fx.Option {
	return fx.Module("newsletter",
		Observability(settings, env),
		fx.Provide(
			provideExecutor,
			provideStore,
			provideServer,
		),
		fx.Invoke(registerServer),
	)
}

func provideTelemetry(lc fx.Lifecycle, settings *config.Settings) (*telemetry.Telemetry, error) {
	tel, err := telemetry.New(context.Background(), telemetry.ConfigFromSettings(settings.Telemetry))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(tel.Shutdown))
	return tel, nil
}

// reportTelemetry surfaces exporter setup failures; the process keeps
// running with whatever providers did come up.
func reportTelemetry(tel *telemetry.Telemetry, logger *zap.Logger) {
	if h := tel.Health(); h.Degraded {
		logger.Warn("Telemetry degraded", zap.Strings("reasons", h.Reasons))
	}
}

func provideRegistry() (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	return reg, nil
}

// NewPipeline builds the layer pipeline in its fixed order: filter, span
// storage, formatting, then the optional OpenTelemetry mirror and the
// Prometheus counters.
func NewPipeline(settings *config.Settings, tel *telemetry.Telemetry, reg prometheus.Registerer) (*tracing.Pipeline, error) {
	filter, err := logging.NewEnvFilter(settings.Logging.Level)
	if err != nil {
		return nil, err
	}

	logCfg := logging.ConfigFromSettings(settings.Logging, Name)
	logCfg.Output.OTEL = tel.LoggerProvider() != nil
	format, err := logging.NewFormatLayer(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, err
	}

	layers := []tracing.Layer{filter, tracing.NewStorageLayer(), format}
	if tel.IsEnabled() {
		layers = append(layers, telemetry.NewOTelLayer(tel.Tracer(Name), redactKeys...))
	}
	if reg != nil {
		metrics, err := telemetry.NewMetricsLayer(reg)
		if err != nil {
			return nil, err
		}
		layers = append(layers, metrics)
	}
	return tracing.NewPipeline(layers...)
}

func provideDispatch(lc fx.Lifecycle, settings *config.Settings, tel *telemetry.Telemetry, reg *prometheus.Registry) (*tracing.Dispatch, error) {
	p, err := NewPipeline(settings, tel, reg)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	d, err := tracing.Init(p)
	if err != nil {
		return nil, fmt.Errorf("install pipeline: %w", err)
	}
	lc.Append(fx.StopHook(func() {
		_ = d.Sync()
	}))
	return d, nil
}

func provideLogger(d *tracing.Dispatch) *zap.Logger {
	return logging.NewZapLogger(d).Named(Name)
}

func provideExecutor(lc fx.Lifecycle, settings *config.Settings, logger *zap.Logger, reg *prometheus.Registry) (*task.Executor, error) {
	metrics, err := task.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	exec, err := task.NewExecutor(task.ConfigFromSettings(settings.Executor))
	if err != nil {
		return nil, err
	}
	exec.SetLogger(logger.Named("executor"))
	exec.SetMetrics(metrics)
	lc.Append(fx.StopHook(exec.Stop))
	return exec, nil
}

func provideStore(lc fx.Lifecycle, settings *config.Settings, logger *zap.Logger) (*storage.Store, error) {
	store, err := storage.Open(context.Background(), settings.Database,
		storage.WithLogger(logger.Named("storage")))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(store.Close))
	return store, nil
}

type serverParams struct {
	fx.In

	Settings *config.Settings
	Store    *storage.Store
	Executor *task.Executor
	Logger   *zap.Logger
	Dispatch *tracing.Dispatch
	Tel      *telemetry.Telemetry
	Registry *prometheus.Registry
}

func provideServer(p serverParams) (*httpserver.Server, error) {
	logger := p.Logger.Named("http")
	return httpserver.NewServer(p.Store, p.Executor, logger,
		httpserver.ConfigFromSettings(p.Settings.Application),
		httpserver.WithDispatch(p.Dispatch),
		httpserver.WithMetrics(httpserver.NewHTTPMetrics(p.Tel.MeterProvider(), logger)),
		httpserver.WithGatherer(p.Registry),
	)
}

// registerServer binds the listener during start so a port conflict fails
// startup, then serves in the background until stop.
func registerServer(lc fx.Lifecycle, sd fx.Shutdowner, srv *httpserver.Server, logger *zap.Logger, env config.Environment) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			addr, err := srv.Listen()
			if err != nil {
				return err
			}
			logger.Info("Server listening",
				zap.Stringer("address", addr),
				zap.String("environment", env.String()))
			go func() {
				if err := srv.Serve(); err != nil {
					logger.Error("Server stopped unexpectedly", zap.Error(err))
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
}

// Migrate registers a start hook that creates the database if needed and
// migrates its schema.
func Migrate() fx.Option {
	return fx.Invoke(func(lc fx.Lifecycle, settings *config.Settings, logger *zap.Logger) {
		lc.Append(fx.StartHook(func(ctx context.Context) error {
			return runMigrations(ctx, settings.Database, logger.Named("storage"))
		}))
	})
}

func runMigrations(ctx context.Context, s config.DatabaseSettings, logger *zap.Logger) error {
	if err := storage.EnsureDatabase(ctx, s, storage.WithLogger(logger)); err != nil {
		return err
	}
	store, err := storage.Open(ctx, s, storage.WithLogger(logger))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("Migrations applied", zap.String("database", s.DatabaseName))
	return nil
}
