// Package clustering implements k-means over 2-D points: nearest-centroid
// assignment, centroid recomputation, and iteration to a fixpoint.
package clustering

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
)

// Assignment is the outcome of one assign-and-update pass.
type Assignment struct {
	// Clusters[i] holds the points nearest to centroid i, in input order.
	Clusters [][]Point
	// Centroids are the recomputed centroids, index aligned with Clusters.
	Centroids []Point
	// Reseeds counts empty clusters whose centroid was redrawn from the dataset.
	Reseeds int
}

// Result is the outcome of Converge.
type Result struct {
	Clusters   [][]Point
	Centroids  []Point
	Iterations int
	Reseeds    int
	// Converged is false when the iteration cap stopped the loop first.
	Converged bool
}

// Engine runs k-means passes. It holds no per-call state and is safe for
// concurrent use as long as its Source is.
type Engine struct {
	rng           Source
	maxIterations atomic.Int64
}

// NewEngine creates an engine drawing from rng. maxIterations bounds Converge;
// zero or less means the loop runs until the centroids stop changing.
func NewEngine(rng Source, maxIterations int) *Engine {
	e := &Engine{rng: rng}
	e.SetMaxIterations(maxIterations)
	return e
}

// SetMaxIterations changes the Converge iteration cap
func (e *Engine) SetMaxIterations(n int) {
	if n < 0 {
		n = 0
	}
	e.maxIterations.Store(int64(n))
}

// MaxIterations returns the current Converge iteration cap (0 = unbounded)
func (e *Engine) MaxIterations() int {
	return int(e.maxIterations.Load())
}

// Step assigns every point to its nearest centroid and recomputes the
// centroids once. ctx is checked while points are assigned.
func (e *Engine) Step(ctx context.Context, data []Point, k int, centroids []Point) (*Assignment, error) {
	if err := validateInput(data, k, centroids); err != nil {
		return nil, err
	}
	a, err := e.pass(ctx, data, k, centroids)
	if err != nil {
		return nil, fmt.Errorf("step stopped: %w", err)
	}
	return a, nil
}

// Converge repeats Step, feeding each pass the centroids computed by the
// previous one, until a pass reproduces exactly the centroids it was given.
// The iteration cap and ctx both end the loop early; the cap reports
// Converged=false, cancellation returns ctx's error.
func (e *Engine) Converge(ctx context.Context, data []Point, k int, centroids []Point) (*Result, error) {
	if err := validateInput(data, k, centroids); err != nil {
		return nil, err
	}

	limit := e.MaxIterations()
	current := slices.Clone(centroids)
	res := &Result{}

	for {
		a, err := e.pass(ctx, data, k, current)
		if err != nil {
			return nil, fmt.Errorf("converge stopped after %d iterations: %w", res.Iterations, err)
		}
		res.Iterations++
		res.Reseeds += a.Reseeds
		res.Clusters = a.Clusters

		if slices.Equal(a.Centroids, current) {
			res.Centroids = current
			res.Converged = true
			return res, nil
		}
		current = a.Centroids

		if limit > 0 && res.Iterations >= limit {
			res.Centroids = current
			return res, nil
		}
	}
}

// ctxCheckInterval is how many points are assigned between ctx checks
const ctxCheckInterval = 1024

func (e *Engine) pass(ctx context.Context, data []Point, k int, centroids []Point) (*Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusters := make([][]Point, k)
	for i := range clusters {
		clusters[i] = []Point{}
	}
	for j, p := range data {
		if j > 0 && j%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		idx := nearest(p, centroids)
		clusters[idx] = append(clusters[idx], p)
	}

	next := make([]Point, k)
	reseeds := 0
	for i, members := range clusters {
		if len(members) == 0 {
			// empty clusters restart from a random point of the whole dataset
			next[i] = data[e.rng.IntN(len(data))]
			reseeds++
			continue
		}
		next[i] = mean(members)
	}

	return &Assignment{Clusters: clusters, Centroids: next, Reseeds: reseeds}, nil
}

func validateInput(data []Point, k int, centroids []Point) error {
	if len(data) == 0 {
		return ErrEmptyDataset
	}
	if k < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(centroids) != k {
		return fmt.Errorf("%w: k=%d, centroids=%d", ErrCentroidCount, k, len(centroids))
	}
	return nil
}
