// Package api defines the contracts for API requests and responses.
// It decouples the wire format from the clustering engine's types.
package api

import "kmeans-backend/domain/clustering"

// DefaultNumPoints is used when /generate-data is called without num_points.
const DefaultNumPoints = 100

// GenerateDataResponse is the body returned by GET /generate-data.
type GenerateDataResponse struct {
	Data []clustering.Point `json:"data"`
}

// KMeansRequest is the body expected by POST /kmeans-step and POST /kmeans-converge.
type KMeansRequest struct {
	Data      []clustering.Point `json:"data" validate:"required,min=1"`
	K         int                `json:"k" validate:"required,min=1"`
	Centroids []clustering.Point `json:"centroids" validate:"required,min=1"`
}

// KMeansResponse is the body returned by POST /kmeans-step.
type KMeansResponse struct {
	Clusters  [][]clustering.Point `json:"clusters"`
	Centroids []clustering.Point   `json:"centroids"`
}

// ConvergeResponse is the body returned by POST /kmeans-converge.
type ConvergeResponse struct {
	Clusters   [][]clustering.Point `json:"clusters"`
	Centroids  []clustering.Point   `json:"centroids"`
	Iterations int                  `json:"iterations"`
	Converged  bool                 `json:"converged"`
}

// InitCentroidsRequest is the body expected by POST /kmeans-init.
type InitCentroidsRequest struct {
	Data   []clustering.Point `json:"data" validate:"required,min=1"`
	K      int                `json:"k" validate:"required,min=1"`
	Method string             `json:"method" validate:"omitempty,oneof=random farthest_first"`
}

// InitCentroidsResponse is the body returned by POST /kmeans-init.
type InitCentroidsResponse struct {
	Centroids []clustering.Point `json:"centroids"`
}

// HealthResponse is returned by the health and readiness probes.
type HealthResponse struct {
	Status string `json:"status"`
}
