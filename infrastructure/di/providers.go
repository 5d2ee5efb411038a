package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/santiagotion/sentinel-sub001/application/ports"
	"github.com/santiagotion/sentinel-sub001/application/queries"
	querybus "github.com/santiagotion/sentinel-sub001/application/queries/bus"
	queries_handlers "github.com/santiagotion/sentinel-sub001/application/queries/handlers"
	"github.com/santiagotion/sentinel-sub001/application/services"
	domainservices "github.com/santiagotion/sentinel-sub001/domain/services"
	"github.com/santiagotion/sentinel-sub001/infrastructure/config"
	"github.com/santiagotion/sentinel-sub001/pkg/observability"
)

// ProvideLogger creates the application logger. Production uses the JSON
// encoder; every other environment the console one. Logs go to stderr so
// stdout stays free for frame output.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = logger.Sync()
	}
	return logger.With(zap.String("environment", cfg.Environment)), cleanup, nil
}

// ProvideCollector creates the metrics collector, or nil when metrics are
// disabled. A nil collector records nothing.
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideTracerProvider installs the OTLP exporter when tracing is enabled.
// Without it spans go to the global no-op provider.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.Tracing.Enabled {
		return nil, func() {}, nil
	}

	tp, err := observability.InitTracing(ctx, cfg.Tracing.ServiceName, cfg.Environment, cfg.Tracing.Endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	logger.Info("Tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideTimelineLayout creates the timeline projection service
func ProvideTimelineLayout(cfg *config.Config) (*domainservices.TimelineLayout, error) {
	return domainservices.NewTimelineLayout(cfg.Layout.Timeline)
}

// ProvideQueryBus creates the query bus and registers every handler
func ProvideQueryBus(
	layout *domainservices.TimelineLayout,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.NewTracingMiddleware(),
		querybus.NewMetricsMiddleware(querybus.NewCollectorMetrics(metrics)),
	)

	// Register BuildGraphQuery handler
	if err := queryBus.Register(
		queries.BuildGraphQuery{},
		queries_handlers.NewBuildGraphHandler(metrics, logger),
	); err != nil {
		return nil, err
	}

	// Register ProjectTimelineQuery handler
	if err := queryBus.Register(
		queries.ProjectTimelineQuery{},
		queries_handlers.NewProjectTimelineHandler(layout, metrics, logger),
	); err != nil {
		return nil, err
	}

	return queryBus, nil
}

// ProvideVisualizationService creates the mount service
func ProvideVisualizationService(
	cfg *config.Config,
	queryBus *querybus.QueryBus,
	scheduler ports.Scheduler,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*services.VisualizationService, error) {
	return services.NewVisualizationService(
		cfg.LayoutConfig(),
		queryBus,
		scheduler,
		cfg.Scheduler.TickInterval.Std(),
		metrics,
		logger,
	)
}
