package di

import (
	"kmeans-backend/application/services"
	"kmeans-backend/infrastructure/config"
	"kmeans-backend/interfaces/http/rest"
	"kmeans-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Tracing    *observability.TracerProvider
	Metrics    *observability.Collector
	Clustering *services.ClusteringService
	Router     *rest.Router
}
