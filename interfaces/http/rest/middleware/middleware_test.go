package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "kmeans-backend/pkg/errors"
	"kmeans-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("Should generate request ID when not provided", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, GetRequestID(r))
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("Should use provided request ID", func(t *testing.T) {
		expectedID := "test-request-id"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, expectedID)
		w := httptest.NewRecorder()

		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, expectedID, GetRequestID(r))
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		assert.Equal(t, expectedID, w.Header().Get(RequestIDHeader))
	})
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := RequestID(Logger(zap.New(core))(http.HandlerFunc(okHandler)))

	req := httptest.NewRequest(http.MethodPost, "/kmeans-step", nil)
	req.Header.Set(RequestIDHeader, "abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	healthReq := httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.ServeHTTP(httptest.NewRecorder(), healthReq)

	entries := logs.All()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/kmeans-step", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, int64(2), fields["bytes"])
	assert.Equal(t, "abc", fields["requestID"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestMetricsMiddleware(t *testing.T) {
	collector := observability.NewCollector("test")

	router := chi.NewRouter()
	router.Use(Metrics(collector))
	router.Get("/generate-data", okHandler)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/generate-data?num_points=5", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET", "/generate-data", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestClientRateLimiter(t *testing.T) {
	t.Run("Should enforce the burst per client", func(t *testing.T) {
		now := time.Unix(1000, 0)
		limiter := NewClientRateLimiter(1, 2)
		limiter.now = func() time.Time { return now }

		assert.True(t, limiter.Allow("a"))
		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))
		assert.True(t, limiter.Allow("b"), "clients have separate buckets")

		now = now.Add(time.Second)
		assert.True(t, limiter.Allow("a"), "one token refills per second")
	})

	t.Run("Should forget idle clients", func(t *testing.T) {
		now := time.Unix(1000, 0)
		limiter := NewClientRateLimiter(1, 1)
		limiter.now = func() time.Time { return now }

		limiter.Allow("a")
		limiter.Allow("b")
		require.Equal(t, 2, limiter.Len())

		now = now.Add(limiter.idleTTL + time.Second)
		limiter.Allow("c")

		assert.Equal(t, 1, limiter.Len())
	})

	t.Run("Should answer 429 when over the limit", func(t *testing.T) {
		collector := observability.NewCollector("test")
		limiter := NewClientRateLimiter(0.001, 1)
		handler := limiter.Middleware(apperrors.NewErrorHandler(zap.NewNop(), false), collector)(http.HandlerFunc(okHandler))

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Equal(t, "1", second.Header().Get("Retry-After"))

		var resp apperrors.ErrorResponse
		require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
		assert.Equal(t, string(apperrors.ErrorTypeRateLimit), resp.Type)
		assert.Equal(t, float64(1), testutil.ToFloat64(collector.RateLimited))
	})
}

func TestCircuitBreakerMiddleware(t *testing.T) {
	cfg := CircuitBreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
	errorHandler := apperrors.NewErrorHandler(zap.NewNop(), false)

	t.Run("Should pass through successful responses untouched", func(t *testing.T) {
		handler := CircuitBreaker(cfg, zap.NewNop(), errorHandler)(http.HandlerFunc(okHandler))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("Should open after repeated server errors", func(t *testing.T) {
		calls := 0
		failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			errorHandler.Handle(w, r, apperrors.NewTimeoutError("converge"))
		})
		handler := CircuitBreaker(cfg, zap.NewNop(), errorHandler)(failing)

		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/kmeans-converge", nil))
			require.Equal(t, http.StatusServiceUnavailable, w.Code)

			// the handler's own response is not rewritten
			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(apperrors.ErrorTypeTimeout), resp.Type)
		}

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/kmeans-converge", nil))

		assert.Equal(t, 2, calls, "open breaker must not reach the handler")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), string(apperrors.ErrorTypeUnavailable)))
	})
}
