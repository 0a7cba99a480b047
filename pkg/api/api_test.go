package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	t.Run("Should decode a k-means request", func(t *testing.T) {
		body := `{"data": [[0,0],[1,1]], "k": 1, "centroids": [[0.5,0.5]]}`
		req := httptest.NewRequest(http.MethodPost, "/kmeans-step", strings.NewReader(body))
		w := httptest.NewRecorder()

		var got KMeansRequest
		require.NoError(t, DecodeJSON(w, req, &got, 1<<20))
		assert.Len(t, got.Data, 2)
		assert.Equal(t, 1, got.K)
		assert.Equal(t, 0.5, got.Centroids[0].X)
	})

	t.Run("Should reject unknown fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"k": 1, "extra": true}`))
		var got KMeansRequest
		assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, &got, 1<<20))
	})

	t.Run("Should reject trailing documents", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"k": 1} {"k": 2}`))
		var got KMeansRequest
		assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, &got, 1<<20))
	})

	t.Run("Should reject oversized bodies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"data": [[0,0],[1,1],[2,2]]}`))
		var got KMeansRequest
		assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, &got, 8))
	})
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, Success(w, http.StatusOK, HealthResponse{Status: "healthy"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	t.Run("Should write nothing when encoding fails", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := Success(w, http.StatusOK, map[string]float64{"x": math.Inf(1)})

		assert.Error(t, err)
		assert.False(t, w.Flushed)
		assert.Empty(t, w.Header().Get("Content-Type"))
		assert.Zero(t, w.Body.Len())
	})
}

func TestSwaggerHandler(t *testing.T) {
	t.Run("Should serve YAML by default", func(t *testing.T) {
		w := httptest.NewRecorder()
		SwaggerHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/swagger", nil))

		assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "/kmeans-converge")
	})

	t.Run("Should serve JSON on request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/swagger", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		SwaggerHandler().ServeHTTP(w, req)

		var spec map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spec))
		assert.Contains(t, spec["paths"], "/kmeans-step")
	})
}
