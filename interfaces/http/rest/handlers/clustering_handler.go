package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"kmeans-backend/domain/clustering"
	"kmeans-backend/pkg/api"
	apperrors "kmeans-backend/pkg/errors"
	"kmeans-backend/pkg/utils"

	"go.uber.org/zap"
)

// ClusteringService is the application service behind the clustering routes
type ClusteringService interface {
	GenerateData(ctx context.Context, n int) ([]clustering.Point, error)
	Step(ctx context.Context, data []clustering.Point, k int, centroids []clustering.Point) (*clustering.Assignment, error)
	Converge(ctx context.Context, data []clustering.Point, k int, centroids []clustering.Point) (*clustering.Result, error)
	InitCentroids(ctx context.Context, data []clustering.Point, k int, method string) ([]clustering.Point, error)
}

// ClusteringHandler handles the k-means HTTP requests
type ClusteringHandler struct {
	service      ClusteringService
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
	maxBodyBytes int64
}

// NewClusteringHandler creates a new clustering handler
func NewClusteringHandler(
	service ClusteringService,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
	maxBodyBytes int64,
) *ClusteringHandler {
	return &ClusteringHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// GenerateData handles GET /generate-data
func (h *ClusteringHandler) GenerateData(w http.ResponseWriter, r *http.Request) {
	n := api.DefaultNumPoints
	if raw := r.URL.Query().Get("num_points"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.NewValidationError("num_points must be an integer").
				WithCode(apperrors.CodeInvalidParameter).
				WithDetails(map[string]interface{}{"num_points": raw}))
			return
		}
		n = parsed
	}

	points, err := h.service.GenerateData(r.Context(), n)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, api.GenerateDataResponse{Data: points})
}

// Step handles POST /kmeans-step
func (h *ClusteringHandler) Step(w http.ResponseWriter, r *http.Request) {
	var req api.KMeansRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.service.Step(r.Context(), req.Data, req.K, req.Centroids)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, api.KMeansResponse{
		Clusters:  a.Clusters,
		Centroids: a.Centroids,
	})
}

// Converge handles POST /kmeans-converge
func (h *ClusteringHandler) Converge(w http.ResponseWriter, r *http.Request) {
	var req api.KMeansRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.Converge(r.Context(), req.Data, req.K, req.Centroids)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, api.ConvergeResponse{
		Clusters:   res.Clusters,
		Centroids:  res.Centroids,
		Iterations: res.Iterations,
		Converged:  res.Converged,
	})
}

// InitCentroids handles POST /kmeans-init
func (h *ClusteringHandler) InitCentroids(w http.ResponseWriter, r *http.Request) {
	var req api.InitCentroidsRequest
	if !h.decode(w, r, &req) {
		return
	}

	centroids, err := h.service.InitCentroids(r.Context(), req.Data, req.K, req.Method)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, api.InitCentroidsResponse{Centroids: centroids})
}

// decode reads and validates the request body, writing the error response on failure
func (h *ClusteringHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := api.DecodeJSON(w, r, v, h.maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, decodeError(err))
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()).
			WithCode(apperrors.CodeInvalidParameter))
		return false
	}
	return true
}

func decodeError(err error) *apperrors.AppError {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		appErr := apperrors.NewValidationError("request body too large").
			WithCode(apperrors.CodeInvalidBody).
			WithDetails(map[string]interface{}{"max_bytes": maxBytesErr.Limit})
		appErr.HTTPStatus = http.StatusRequestEntityTooLarge
		return appErr
	case errors.Is(err, clustering.ErrMalformedPoint):
		return apperrors.NewValidationError(err.Error()).
			WithCode(apperrors.CodeMalformedPoint).
			WithCause(err)
	default:
		return apperrors.NewValidationError("invalid request body: " + err.Error()).
			WithCode(apperrors.CodeInvalidBody).
			WithCause(err)
	}
}

// respondJSON writes data as JSON. Nothing has been written when encoding
// fails, so the failure still goes out as a 500.
func (h *ClusteringHandler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := api.Success(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.String("path", r.URL.Path), zap.Error(err))
		h.errorHandler.Handle(w, r, apperrors.Wrap(err, "failed to encode response"))
	}
}
