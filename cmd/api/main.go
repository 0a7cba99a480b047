package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"kmeans-backend/infrastructure/config"
	"kmeans-backend/infrastructure/di"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	loader := config.NewLoader(os.Getenv("CONFIG_DIR"), config.CurrentEnvironment())
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      container.Router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	servers := []*http.Server{srv}

	if cfg.Metrics.Enabled && cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", container.Metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:        cfg.Metrics.Address,
			Handler:     mux,
			ReadTimeout: cfg.Server.ReadTimeout,
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, s := range servers {
		g.Go(func() error {
			logger.Info("Starting server",
				zap.String("address", s.Addr),
				zap.String("environment", string(cfg.Environment)),
				zap.Strings("config", cfg.LoadedFrom),
			)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if cfg.IsDevelopment() {
		watcher := config.NewWatcher(loader, cfg, logger)
		watcher.OnChange(func(updated *config.Config) {
			container.Clustering.UpdateLimits(di.LimitsFromConfig(updated))
		})
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		container.Router.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	if err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	// Clean up resources
	cleanup()

	if err != nil {
		os.Exit(1)
	}
	log.Println("Server stopped")
}
