package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kmeans-backend/domain/clustering"
	apperrors "kmeans-backend/pkg/errors"
	"kmeans-backend/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Limits bound the work a single request may ask for
type Limits struct {
	MaxPoints       int
	MaxIterations   int
	ConvergeTimeout time.Duration
}

// ClusteringService runs the clustering engine on behalf of the HTTP layer:
// it enforces request limits, maps engine errors to API errors, and records
// logs, metrics and spans for every run.
type ClusteringService struct {
	engine  *clustering.Engine
	logger  *zap.Logger
	metrics *observability.Collector
	tracer  trace.Tracer

	mu     sync.RWMutex
	limits Limits
}

// NewClusteringService creates a new clustering service
func NewClusteringService(
	engine *clustering.Engine,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer trace.Tracer,
	limits Limits,
) *ClusteringService {
	s := &ClusteringService{
		engine:  engine,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
	s.UpdateLimits(limits)
	return s
}

// UpdateLimits swaps the request limits, e.g. after a configuration reload
func (s *ClusteringService) UpdateLimits(limits Limits) {
	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()
	s.engine.SetMaxIterations(limits.MaxIterations)

	s.logger.Debug("Clustering limits updated",
		zap.Int("maxPoints", limits.MaxPoints),
		zap.Int("maxIterations", limits.MaxIterations),
		zap.Duration("convergeTimeout", limits.ConvergeTimeout),
	)
}

// Limits returns the limits currently in force
func (s *ClusteringService) Limits() Limits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits
}

// GenerateData returns n uniformly distributed points
func (s *ClusteringService) GenerateData(ctx context.Context, n int) ([]clustering.Point, error) {
	_, span := s.tracer.Start(ctx, "clustering.Generate",
		trace.WithAttributes(attribute.Int("points", n)))
	defer span.End()

	if limit := s.Limits().MaxPoints; limit > 0 && n > limit {
		err := apperrors.NewValidationError(fmt.Sprintf("num_points must be at most %d", limit)).
			WithCode(apperrors.CodeTooManyPoints).
			WithDetails(map[string]interface{}{"max_points": limit})
		s.fail(span, "generate", err)
		return nil, err
	}

	start := time.Now()
	points, err := s.engine.Generate(n)
	if err != nil {
		appErr := translate(err)
		s.fail(span, "generate", appErr)
		return nil, appErr
	}

	s.metrics.PointsGenerated.Add(float64(len(points)))
	s.metrics.ObserveRun("generate", "ok", 0, 0, time.Since(start))
	s.logger.Debug("Generated data", zap.Int("points", n))

	return points, nil
}

// Step runs one assign-and-update pass under the request deadline
func (s *ClusteringService) Step(ctx context.Context, data []clustering.Point, k int, centroids []clustering.Point) (*clustering.Assignment, error) {
	ctx, span := s.startRun(ctx, "clustering.Step", data, k)
	defer span.End()

	if err := s.checkInput(data, k, centroids); err != nil {
		s.fail(span, "step", err)
		return nil, err
	}

	limits := s.Limits()
	ctx, cancel := withTimeout(ctx, limits.ConvergeTimeout)
	defer cancel()

	start := time.Now()
	a, err := s.engine.Step(ctx, data, k, centroids)
	if err != nil {
		appErr := s.runError("step", err, data, k, limits)
		s.fail(span, "step", appErr)
		return nil, appErr
	}
	if err := checkFinite("centroids", a.Centroids); err != nil {
		s.fail(span, "step", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("reseeds", a.Reseeds))
	s.metrics.ObserveRun("step", "ok", 1, a.Reseeds, time.Since(start))
	s.logger.Debug("K-means step completed",
		zap.Int("points", len(data)),
		zap.Int("k", k),
		zap.Int("reseeds", a.Reseeds),
	)

	return a, nil
}

// Converge runs passes until the centroids are stable, the iteration cap is
// reached, or the request deadline expires.
func (s *ClusteringService) Converge(ctx context.Context, data []clustering.Point, k int, centroids []clustering.Point) (*clustering.Result, error) {
	ctx, span := s.startRun(ctx, "clustering.Converge", data, k)
	defer span.End()

	if err := s.checkInput(data, k, centroids); err != nil {
		s.fail(span, "converge", err)
		return nil, err
	}

	limits := s.Limits()
	ctx, cancel := withTimeout(ctx, limits.ConvergeTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.engine.Converge(ctx, data, k, centroids)
	if err != nil {
		appErr := s.runError("converge", err, data, k, limits)
		s.fail(span, "converge", appErr)
		return nil, appErr
	}
	if err := checkFinite("centroids", res.Centroids); err != nil {
		s.fail(span, "converge", err)
		return nil, err
	}

	outcome := "converged"
	if !res.Converged {
		outcome = "iteration_cap"
		s.logger.Warn("K-means stopped at iteration cap before converging",
			zap.Int("points", len(data)),
			zap.Int("k", k),
			zap.Int("iterations", res.Iterations),
			zap.Int("reseeds", res.Reseeds),
		)
	}

	span.SetAttributes(
		attribute.Int("iterations", res.Iterations),
		attribute.Int("reseeds", res.Reseeds),
		attribute.Bool("converged", res.Converged),
	)
	s.metrics.ObserveRun("converge", outcome, res.Iterations, res.Reseeds, time.Since(start))
	s.logger.Info("K-means converge completed",
		zap.Int("points", len(data)),
		zap.Int("k", k),
		zap.Int("iterations", res.Iterations),
		zap.Bool("converged", res.Converged),
		zap.Duration("duration", time.Since(start)),
	)

	return res, nil
}

// InitCentroids picks k starting centroids from data
func (s *ClusteringService) InitCentroids(ctx context.Context, data []clustering.Point, k int, method string) ([]clustering.Point, error) {
	_, span := s.startRun(ctx, "clustering.Seed", data, k)
	defer span.End()

	if err := s.checkInput(data, k, nil); err != nil {
		s.fail(span, "seed", err)
		return nil, err
	}

	m, err := clustering.ParseSeedMethod(method)
	if err != nil {
		appErr := translate(err)
		s.fail(span, "seed", appErr)
		return nil, appErr
	}
	span.SetAttributes(attribute.String("method", string(m)))

	start := time.Now()
	centroids, err := s.engine.Seed(data, k, m)
	if err != nil {
		appErr := translate(err)
		s.fail(span, "seed", appErr)
		return nil, appErr
	}

	s.metrics.ObserveRun("seed", "ok", 0, 0, time.Since(start))
	return centroids, nil
}

func (s *ClusteringService) startRun(ctx context.Context, name string, data []clustering.Point, k int) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int("points", len(data)),
		attribute.Int("k", k),
	))
}

// checkInput enforces the request limits. k is bounded by the point limit so
// the centroid scan cannot grow past the dataset size cap.
func (s *ClusteringService) checkInput(data []clustering.Point, k int, centroids []clustering.Point) *apperrors.AppError {
	limit := s.Limits().MaxPoints
	if limit > 0 && len(data) > limit {
		return apperrors.NewValidationError(fmt.Sprintf("data must contain at most %d points", limit)).
			WithCode(apperrors.CodeTooManyPoints).
			WithDetails(map[string]interface{}{"max_points": limit, "points": len(data)})
	}
	if limit > 0 && k > limit {
		return apperrors.NewValidationError(fmt.Sprintf("k must be at most %d", limit)).
			WithCode(apperrors.CodeTooManyClusters).
			WithDetails(map[string]interface{}{"max_k": limit, "k": k})
	}
	if err := checkFinite("data", data); err != nil {
		return err
	}
	return checkFinite("centroids", centroids)
}

// runError maps an engine failure, treating an expired or canceled context as a timeout
func (s *ClusteringService) runError(operation string, err error, data []clustering.Point, k int, limits Limits) *apperrors.AppError {
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return translate(err)
	}

	s.logger.Warn("K-means run stopped by deadline",
		zap.String("operation", operation),
		zap.Int("points", len(data)),
		zap.Int("k", k),
		zap.Error(err),
	)
	return apperrors.NewTimeoutError(operation).WithCause(err).
		WithDetails(map[string]interface{}{"timeout": limits.ConvergeTimeout.String()})
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func checkFinite(field string, points []clustering.Point) *apperrors.AppError {
	for i, p := range points {
		if !p.IsFinite() {
			return apperrors.NewValidationError(fmt.Sprintf("%s[%d] is not a finite coordinate pair", field, i)).
				WithCode(apperrors.CodeNonFinite)
		}
	}
	return nil
}

func (s *ClusteringService) fail(span trace.Span, operation string, err *apperrors.AppError) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Message)
	s.metrics.ClusteringRuns.WithLabelValues(operation, string(err.Type)).Inc()
}

// translate maps engine errors to API errors
func translate(err error) *apperrors.AppError {
	if !clustering.IsInputError(err) {
		return apperrors.NewInternalError("clustering failed").WithCause(err)
	}

	code := apperrors.CodeInvalidParameter
	switch {
	case errors.Is(err, clustering.ErrEmptyDataset):
		code = apperrors.CodeEmptyDataset
	case errors.Is(err, clustering.ErrInvalidK):
		code = apperrors.CodeInvalidK
	case errors.Is(err, clustering.ErrCentroidCount):
		code = apperrors.CodeCentroidCount
	case errors.Is(err, clustering.ErrUnknownSeedMethod):
		code = apperrors.CodeUnknownMethod
	case errors.Is(err, clustering.ErrMalformedPoint):
		code = apperrors.CodeMalformedPoint
	}
	return apperrors.NewValidationError(err.Error()).WithCode(code).WithCause(err)
}
