package middleware

import (
	"errors"
	"net/http"
	"time"

	"kmeans-backend/infrastructure/config"
	apperrors "kmeans-backend/pkg/errors"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// errServerError marks a request the wrapped handler answered with a 5xx
var errServerError = errors.New("handler responded with server error")

// CircuitBreakerConfig holds configuration for circuit breaker
type CircuitBreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that opens the breaker once MinRequests were seen
	FailureThreshold float64
	MinRequests      uint32
}

// NewCircuitBreakerConfig builds a breaker configuration from application config
func NewCircuitBreakerConfig(name string, cfg config.CircuitBreaker) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      cfg.MaxRequests,
		Interval:         cfg.Interval,
		Timeout:          cfg.Timeout,
		FailureThreshold: cfg.FailureThreshold,
		MinRequests:      cfg.MinRequests,
	}
}

// CircuitBreaker creates a circuit breaker middleware with the given configuration.
// Responses with a 5xx status count as failures. While the breaker is open,
// requests are answered with 503 without reaching the handler.
func CircuitBreaker(cfg CircuitBreakerConfig, logger *zap.Logger, errorHandler *apperrors.ErrorHandler) func(http.Handler) http.Handler {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Only trip if we have enough requests to make a decision
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := cb.Execute(func() (any, error) {
				ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
				next.ServeHTTP(ww, r)

				if ww.Status() >= http.StatusInternalServerError {
					return nil, errServerError
				}
				return nil, nil
			})

			switch {
			case err == nil, errors.Is(err, errServerError):
				// the handler already wrote its response
			case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
				logger.Warn("Circuit breaker rejected request",
					zap.String("name", cfg.Name),
					zap.String("state", cb.State().String()),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				errorHandler.Handle(w, r, apperrors.NewUnavailableError(cfg.Name).WithCause(err))
			default:
				errorHandler.Handle(w, r, apperrors.NewInternalError("circuit breaker failure").WithCause(err))
			}
		})
	}
}
