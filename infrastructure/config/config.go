// Package config provides configuration management for the clustering backend.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Environment is the deployment environment the service runs in
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	Environment    Environment    `yaml:"environment"`
	Server         Server         `yaml:"server"`
	Clustering     Clustering     `yaml:"clustering"`
	RateLimit      RateLimit      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreaker `yaml:"circuit_breaker"`
	Metrics        Metrics        `yaml:"metrics"`
	Tracing        Tracing        `yaml:"tracing"`
	Log            Log            `yaml:"log"`

	// Lambda is set when running inside AWS Lambda
	Lambda bool `yaml:"-"`

	// LoadedFrom lists the sources merged into this configuration, lowest priority first
	LoadedFrom []string `yaml:"-"`
}

// Server holds HTTP server settings
type Server struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	MaxPoints       int           `yaml:"max_points"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Clustering holds the limits applied to the clustering engine
type Clustering struct {
	// MaxIterations caps Converge; 0 lets it run until the centroids are stable
	MaxIterations int `yaml:"max_iterations"`
	// ConvergeTimeout bounds the wall time of a single Step or Converge call; 0 disables it
	ConvergeTimeout time.Duration `yaml:"converge_timeout"`
	// RandomSeed seeds the reseeding/generation source; 0 seeds from the clock
	RandomSeed uint64 `yaml:"random_seed"`
}

// RateLimit holds per-client rate limiting settings for the clustering routes
type RateLimit struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CircuitBreaker holds circuit breaker settings for the clustering routes
type CircuitBreaker struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Metrics holds Prometheus settings
type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	// Address serves /metrics on a separate listener when set
	Address string `yaml:"address"`
}

// Tracing holds OpenTelemetry settings
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// Log holds logger settings
type Log struct {
	Level string `yaml:"level"`
	Debug bool   `yaml:"debug"`
}

// Default returns the configuration used before any file or environment overlay
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: Server{
			Address:         ":3000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    10 << 20,
			MaxPoints:       100000,
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Clustering: Clustering{
			MaxIterations:   1000,
			ConvergeTimeout: 10 * time.Second,
		},
		RateLimit: RateLimit{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		CircuitBreaker: CircuitBreaker{
			Enabled:          true,
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "kmeans",
		},
		Tracing: Tracing{
			ServiceName: "kmeans-backend",
			Endpoint:    "localhost:4317",
			SampleRate:  1.0,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Environment))
	}
	if c.Server.Address == "" && !c.Lambda {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.Server.MaxPoints < 1 {
		errs = append(errs, errors.New("server.max_points must be at least 1"))
	}
	if c.Clustering.MaxIterations < 0 {
		errs = append(errs, errors.New("clustering.max_iterations must not be negative"))
	}
	if c.Clustering.ConvergeTimeout < 0 {
		errs = append(errs, errors.New("clustering.converge_timeout must not be negative"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("rate_limit requires a positive requests_per_second and burst"))
	}
	if c.CircuitBreaker.Enabled && (c.CircuitBreaker.FailureThreshold <= 0 || c.CircuitBreaker.FailureThreshold > 1) {
		errs = append(errs, errors.New("circuit_breaker.failure_threshold must be in (0, 1]"))
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("tracing.endpoint is required when tracing is enabled"))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("tracing.sample_rate must be in [0, 1]"))
	}

	return errors.Join(errs...)
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}
