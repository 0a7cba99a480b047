package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	RateLimited  prometheus.Counter

	// Clustering metrics
	ClusteringRuns       *prometheus.CounterVec
	ClusteringIterations *prometheus.HistogramVec
	ClusteringDuration   *prometheus.HistogramVec
	EmptyClusterReseeds  prometheus.Counter
	PointsGenerated      prometheus.Counter
}

// NewCollector creates a collector with its own registry under the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_rate_limited_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),
		ClusteringRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clustering_runs_total",
				Help:      "Total number of clustering operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		ClusteringIterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "clustering_iterations",
				Help:      "Assign-and-update passes per clustering operation",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"operation"},
		),
		ClusteringDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "clustering_duration_seconds",
				Help:      "Time spent inside the clustering engine",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		EmptyClusterReseeds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "empty_cluster_reseeds_total",
				Help:      "Total number of empty clusters reseeded from the dataset",
			},
		),
		PointsGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "points_generated_total",
				Help:      "Total number of random points generated",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.RateLimited,
		c.ClusteringRuns,
		c.ClusteringIterations,
		c.ClusteringDuration,
		c.EmptyClusterReseeds,
		c.PointsGenerated,
	)

	return c
}

// ObserveRun records one clustering operation
func (c *Collector) ObserveRun(operation, outcome string, iterations, reseeds int, elapsed time.Duration) {
	c.ClusteringRuns.WithLabelValues(operation, outcome).Inc()
	if iterations > 0 {
		c.ClusteringIterations.WithLabelValues(operation).Observe(float64(iterations))
	}
	if reseeds > 0 {
		c.EmptyClusterReseeds.Add(float64(reseeds))
	}
	c.ClusteringDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveHTTP records one HTTP request
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
