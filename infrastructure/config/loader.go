package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader builds a Config from layered sources, lowest priority first:
//  1. defaults in code
//  2. <dir>/base.yaml
//  3. <dir>/<environment>.yaml
//  4. environment variables
type Loader struct {
	basePath    string
	environment Environment
	lookupEnv   func(string) (string, bool)
}

// NewLoader creates a loader reading files from basePath
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{
		basePath:    basePath,
		environment: env,
		lookupEnv:   os.LookupEnv,
	}
}

// BasePath returns the directory configuration files are read from
func (l *Loader) BasePath() string {
	return l.basePath
}

// LoadConfig loads configuration using ENVIRONMENT and CONFIG_DIR from the process environment
func LoadConfig() (*Config, error) {
	return NewLoader(os.Getenv("CONFIG_DIR"), CurrentEnvironment()).Load()
}

// CurrentEnvironment reads ENVIRONMENT, defaulting to development
func CurrentEnvironment() Environment {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return Environment(strings.ToLower(env))
	}
	return Development
}

// Load merges every source and validates the result
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	cfg.Environment = l.environment
	cfg.LoadedFrom = []string{"defaults"}

	for _, name := range []string{"base", string(l.environment)} {
		path, err := l.loadFile(name, cfg)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to load %s config: %w", name, err)
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	if err := l.applyEnvironment(cfg); err != nil {
		return nil, err
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile decodes <name>.yaml or <name>.yml over cfg
func (l *Loader) loadFile(name string, cfg *Config) (string, error) {
	for _, ext := range []string{"yaml", "yml"} {
		path := filepath.Join(l.basePath, name+"."+ext)

		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", err
		}

		err = decodeYAML(file, cfg)
		file.Close()
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return path, nil
	}
	return "", fs.ErrNotExist
}

func decodeYAML(r io.Reader, cfg *Config) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvironment overlays environment variables on cfg
func (l *Loader) applyEnvironment(cfg *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			*dst = v == "true" || v == "1" || v == "yes"
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	// Server
	str("SERVER_ADDRESS", &cfg.Server.Address)
	if v, ok := l.lookupEnv("PORT"); ok && v != "" {
		cfg.Server.Address = ":" + v
	}
	integer("MAX_POINTS", &cfg.Server.MaxPoints)
	if v, ok := l.lookupEnv("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.Server.AllowedOrigins = origins
	}

	// Clustering
	integer("MAX_ITERATIONS", &cfg.Clustering.MaxIterations)
	duration("CONVERGE_TIMEOUT", &cfg.Clustering.ConvergeTimeout)
	if v, ok := l.lookupEnv("RANDOM_SEED"); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RANDOM_SEED: %w", err))
		} else {
			cfg.Clustering.RandomSeed = seed
		}
	}

	// Rate limiting
	boolean("ENABLE_RATE_LIMIT", &cfg.RateLimit.Enabled)
	float("RATE_LIMIT_RPS", &cfg.RateLimit.RequestsPerSecond)
	integer("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	// Observability
	boolean("ENABLE_METRICS", &cfg.Metrics.Enabled)
	str("METRICS_ADDRESS", &cfg.Metrics.Address)
	boolean("ENABLE_TRACING", &cfg.Tracing.Enabled)
	str("OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	str("LOG_LEVEL", &cfg.Log.Level)
	boolean("DEBUG", &cfg.Log.Debug)

	// Lambda
	boolean("IS_LAMBDA", &cfg.Lambda)
	if v, ok := l.lookupEnv("AWS_LAMBDA_FUNCTION_NAME"); ok && v != "" {
		cfg.Lambda = true
	}

	return errors.Join(errs...)
}
