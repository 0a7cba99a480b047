package clustering

import "fmt"

// Generate returns n points with both coordinates uniform in [0, 1).
func (e *Engine) Generate(n int) ([]Point, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPointCount, n)
	}
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{X: e.rng.Float64(), Y: e.rng.Float64()}
	}
	return points, nil
}
