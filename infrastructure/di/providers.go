package di

import (
	"context"
	"fmt"

	"kmeans-backend/application/services"
	"kmeans-backend/domain/clustering"
	"kmeans-backend/infrastructure/config"
	"kmeans-backend/interfaces/http/rest/handlers"
	apperrors "kmeans-backend/pkg/errors"
	"kmeans-backend/pkg/observability"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogger creates the application logger. The cleanup flushes buffered entries.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}
	if cfg.Log.Debug {
		level = zapcore.DebugLevel
	}

	var zcfg zap.Config
	if cfg.IsProduction() || cfg.Lambda {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("environment", string(cfg.Environment)))

	cleanup := func() {
		_ = logger.Sync()
	}
	return logger, cleanup, nil
}

// ProvideTracerProvider sets up tracing and shuts it down on cleanup
func ProvideTracerProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideTracer returns the tracer used by the clustering service
func ProvideTracer(tp *observability.TracerProvider) trace.Tracer {
	return tp.Tracer()
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideRandomSource creates the shared randomness source
func ProvideRandomSource(cfg *config.Config) *clustering.LockedSource {
	return clustering.NewSource(cfg.Clustering.RandomSeed)
}

// ProvideEngine creates the clustering engine
func ProvideEngine(source clustering.Source, cfg *config.Config) *clustering.Engine {
	return clustering.NewEngine(source, cfg.Clustering.MaxIterations)
}

// LimitsFromConfig extracts the clustering request limits
func LimitsFromConfig(cfg *config.Config) services.Limits {
	return services.Limits{
		MaxPoints:       cfg.Server.MaxPoints,
		MaxIterations:   cfg.Clustering.MaxIterations,
		ConvergeTimeout: cfg.Clustering.ConvergeTimeout,
	}
}

// ProvideClusteringService creates the clustering application service
func ProvideClusteringService(
	engine *clustering.Engine,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer trace.Tracer,
	cfg *config.Config,
) *services.ClusteringService {
	return services.NewClusteringService(engine, logger, metrics, tracer, LimitsFromConfig(cfg))
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(logger *zap.Logger, cfg *config.Config) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.Log.Debug)
}

// ProvideClusteringHandler creates the clustering HTTP handler
func ProvideClusteringHandler(
	service handlers.ClusteringService,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
	cfg *config.Config,
) *handlers.ClusteringHandler {
	return handlers.NewClusteringHandler(service, errorHandler, logger, cfg.Server.MaxBodyBytes)
}
