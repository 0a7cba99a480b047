package clustering

import (
	"fmt"
	"math"
)

// SeedMethod selects how initial centroids are picked from a dataset.
type SeedMethod string

const (
	// SeedRandom draws k points uniformly, with replacement.
	SeedRandom SeedMethod = "random"
	// SeedFarthestFirst draws one point, then repeatedly adds the point
	// farthest from every centroid chosen so far.
	SeedFarthestFirst SeedMethod = "farthest_first"
)

// ParseSeedMethod maps a method name to a SeedMethod. The empty string means SeedRandom.
func ParseSeedMethod(name string) (SeedMethod, error) {
	switch SeedMethod(name) {
	case "", SeedRandom:
		return SeedRandom, nil
	case SeedFarthestFirst:
		return SeedFarthestFirst, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSeedMethod, name)
	}
}

// Seed picks k initial centroids from data.
func (e *Engine) Seed(data []Point, k int, method SeedMethod) ([]Point, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDataset
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}

	switch method {
	case SeedRandom:
		centroids := make([]Point, k)
		for i := range centroids {
			centroids[i] = data[e.rng.IntN(len(data))]
		}
		return centroids, nil
	case SeedFarthestFirst:
		return e.farthestFirst(data, k), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeedMethod, method)
	}
}

func (e *Engine) farthestFirst(data []Point, k int) []Point {
	centroids := make([]Point, 0, k)
	centroids = append(centroids, data[e.rng.IntN(len(data))])

	// minDist[j] is the distance from data[j] to its closest chosen centroid
	minDist := make([]float64, len(data))
	for j, p := range data {
		minDist[j] = p.Distance(centroids[0])
	}

	for len(centroids) < k {
		farthest := 0
		maxDist := math.Inf(-1)
		for j, d := range minDist {
			if d > maxDist {
				maxDist = d
				farthest = j
			}
		}
		c := data[farthest]
		centroids = append(centroids, c)
		for j, p := range data {
			if d := p.Distance(c); d < minDist[j] {
				minDist[j] = d
			}
		}
	}
	return centroids
}
