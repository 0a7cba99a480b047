package rest

import (
	"net/http"
	"sync/atomic"

	"kmeans-backend/infrastructure/config"
	"kmeans-backend/interfaces/http/rest/handlers"
	"kmeans-backend/interfaces/http/rest/middleware"
	"kmeans-backend/pkg/api"
	apperrors "kmeans-backend/pkg/errors"
	"kmeans-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
)

// APIVersion is reported in the X-API-Version header
const APIVersion = "v1"

// Router creates and configures the HTTP router
type Router struct {
	cfg          *config.Config
	clustering   *handlers.ClusteringHandler
	errorHandler *apperrors.ErrorHandler
	metrics      *observability.Collector
	logger       *zap.Logger
	ready        atomic.Bool
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	clustering *handlers.ClusteringHandler,
	errorHandler *apperrors.ErrorHandler,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Router {
	rt := &Router{
		cfg:          cfg,
		clustering:   clustering,
		errorHandler: errorHandler,
		metrics:      metrics,
		logger:       logger,
	}
	rt.ready.Store(true)
	return rt
}

// SetReady flips the readiness probe, e.g. while draining on shutdown
func (rt *Router) SetReady(ready bool) {
	rt.ready.Store(ready)
}

// Setup configures all routes and middleware and compresses responses
func (rt *Router) Setup() http.Handler {
	return gzhttp.GzipHandler(rt.Mux())
}

// Mux returns the uncompressed chi router. API Gateway compresses on its own,
// so the Lambda adapter uses this directly.
func (rt *Router) Mux() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Metrics(rt.metrics))
	router.Use(versionMiddleware)

	// CORS for the browser client
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.Handle(w, r, apperrors.NewNotFoundError("route "+r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	if rt.cfg.Metrics.Enabled && rt.cfg.Metrics.Address == "" {
		router.Handle("/metrics", rt.metrics.Handler())
	}
	router.Get("/api/swagger", api.SwaggerHandler())

	// The limiter and breaker are shared by both mounts
	guards := rt.clusteringGuards()
	clusteringRoutes := func(r chi.Router) {
		r.Use(guards...)
		r.Get("/generate-data", rt.clustering.GenerateData)
		r.Post("/kmeans-step", rt.clustering.Step)
		r.Post("/kmeans-converge", rt.clustering.Converge)
		r.Post("/kmeans-init", rt.clustering.InitCentroids)
	}

	router.Group(clusteringRoutes)
	router.Route("/api/"+APIVersion, clusteringRoutes)

	return router
}

func (rt *Router) clusteringGuards() []func(http.Handler) http.Handler {
	var guards []func(http.Handler) http.Handler

	if rl := rt.cfg.RateLimit; rl.Enabled {
		limiter := middleware.NewClientRateLimiter(rl.RequestsPerSecond, rl.Burst)
		guards = append(guards, limiter.Middleware(rt.errorHandler, rt.metrics))
	}
	if rt.cfg.CircuitBreaker.Enabled {
		cbConfig := middleware.NewCircuitBreakerConfig("clustering", rt.cfg.CircuitBreaker)
		guards = append(guards, middleware.CircuitBreaker(cbConfig, rt.logger, rt.errorHandler))
	}

	return guards
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	_ = api.Success(w, http.StatusOK, api.HealthResponse{Status: "healthy"})
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if !rt.ready.Load() {
		_ = api.Success(w, http.StatusServiceUnavailable, api.HealthResponse{Status: "draining"})
		return
	}
	_ = api.Success(w, http.StatusOK, api.HealthResponse{Status: "ready"})
}

// versionMiddleware adds the API version header to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", APIVersion)
		next.ServeHTTP(w, r)
	})
}
