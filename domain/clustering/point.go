package clustering

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point is a position in the plane. On the wire it is a two element array [x, y].
type Point struct {
	X float64
	Y float64
}

// NewPoint creates a point from its coordinates
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the euclidean distance between two points
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// MarshalJSON encodes the point as [x, y]
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a point from [x, y]. Anything else, null included, is rejected.
func (p *Point) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPoint, err)
	}
	if len(coords) != 2 {
		return fmt.Errorf("%w: expected 2 coordinates, got %d", ErrMalformedPoint, len(coords))
	}
	p.X, p.Y = coords[0], coords[1]
	return nil
}

// String implements fmt.Stringer
func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// nearest returns the index of the centroid closest to p. The scan keeps the
// first minimum, so exact ties resolve to the lowest index.
func nearest(p Point, centroids []Point) int {
	best := 0
	bestDist := p.Distance(centroids[0])
	for i := 1; i < len(centroids); i++ {
		if d := p.Distance(centroids[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}
	if math.IsInf(bestDist, 1) {
		// every distance overflowed; compare them at a quarter scale instead
		return nearestScaled(p, centroids)
	}
	return best
}

// nearestScaled is nearest for coordinates whose differences overflow float64.
// Scaling by a power of two keeps the order of the distances.
func nearestScaled(p Point, centroids []Point) int {
	best := 0
	bestDist := p.scaled().Distance(centroids[0].scaled())
	for i := 1; i < len(centroids); i++ {
		if d := p.scaled().Distance(centroids[i].scaled()); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func (p Point) scaled() Point {
	return Point{X: p.X / 4, Y: p.Y / 4}
}

// mean returns the component-wise average of a non-empty set of points
func mean(points []Point) Point {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	return Point{X: average(xs), Y: average(ys)}
}

// average sums first and divides once. When the sum overflows, each term is
// divided before summing, which keeps the result within the input range.
func average(values []float64) float64 {
	n := float64(len(values))

	var sum float64
	for _, v := range values {
		sum += v
	}
	if !math.IsInf(sum, 0) {
		return sum / n
	}

	sum = 0
	for _, v := range values {
		sum += v / n
	}
	return sum
}

// IsFinite reports whether both coordinates are finite numbers
func (p Point) IsFinite() bool {
	return !math.IsInf(p.X, 0) && !math.IsNaN(p.X) && !math.IsInf(p.Y, 0) && !math.IsNaN(p.Y)
}
