//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"kmeans-backend/application/services"
	"kmeans-backend/domain/clustering"
	"kmeans-backend/infrastructure/config"
	"kmeans-backend/interfaces/http/rest"
	"kmeans-backend/interfaces/http/rest/handlers"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideTracerProvider,
	ProvideTracer,
	ProvideMetrics,
	ProvideRandomSource,
	wire.Bind(new(clustering.Source), new(*clustering.LockedSource)),
	ProvideEngine,
	ProvideClusteringService,
	wire.Bind(new(handlers.ClusteringService), new(*services.ClusteringService)),
	ProvideErrorHandler,
	ProvideClusteringHandler,
	rest.NewRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
