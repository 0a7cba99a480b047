package clustering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceSource replays fixed values and records the bounds it was asked for.
type sequenceSource struct {
	ints   []int
	floats []float64
	calls  []int
	ni, nf int
}

func (s *sequenceSource) IntN(n int) int {
	s.calls = append(s.calls, n)
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[s.ni%len(s.ints)]
	s.ni++
	return v % n
}

func (s *sequenceSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[s.nf%len(s.floats)]
	s.nf++
	return v
}

func pts(coords ...[2]float64) []Point {
	out := make([]Point, len(coords))
	for i, c := range coords {
		out[i] = Point{X: c[0], Y: c[1]}
	}
	return out
}

func totalPoints(clusters [][]Point) int {
	n := 0
	for _, c := range clusters {
		n += len(c)
	}
	return n
}

func TestStep(t *testing.T) {
	t.Run("Should split the two column example", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 0)
		data := pts([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{10, 0}, [2]float64{10, 1})

		a, err := engine.Step(context.Background(), data, 2, pts([2]float64{0, 0}, [2]float64{10, 0}))
		require.NoError(t, err)

		assert.Equal(t, [][]Point{
			pts([2]float64{0, 0}, [2]float64{0, 1}),
			pts([2]float64{10, 0}, [2]float64{10, 1}),
		}, a.Clusters)
		assert.Equal(t, pts([2]float64{0, 0.5}, [2]float64{10, 0.5}), a.Centroids)
		assert.Zero(t, a.Reseeds)

		again, err := engine.Step(context.Background(), data, 2, a.Centroids)
		require.NoError(t, err)
		assert.Equal(t, a.Clusters, again.Clusters)
		assert.Equal(t, a.Centroids, again.Centroids)
	})

	t.Run("Should break exact ties toward the lowest index", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 0)
		data := pts([2]float64{5, 0}, [2]float64{5, 3})

		a, err := engine.Step(context.Background(), data, 3, pts([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{0, 0}))
		require.NoError(t, err)

		assert.Len(t, a.Clusters[0], 2)
		assert.Empty(t, a.Clusters[1])
		assert.Empty(t, a.Clusters[2])
	})

	t.Run("Should keep identical points together", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 0)
		data := pts([2]float64{1, 1}, [2]float64{1, 1}, [2]float64{1, 1})

		a, err := engine.Step(context.Background(), data, 2, pts([2]float64{1, 1}, [2]float64{1, 1}))
		require.NoError(t, err)

		assert.Len(t, a.Clusters[0], 3)
		assert.Empty(t, a.Clusters[1])
		assert.Equal(t, Point{1, 1}, a.Centroids[0])
		assert.Equal(t, Point{1, 1}, a.Centroids[1])
	})

	t.Run("Should reseed empty clusters from the full dataset", func(t *testing.T) {
		src := &sequenceSource{ints: []int{2}}
		engine := NewEngine(src, 0)
		data := pts([2]float64{0, 0}, [2]float64{1, 1}, [2]float64{2, 2})

		a, err := engine.Step(context.Background(), data, 2, pts([2]float64{0, 0}, [2]float64{100, 100}))
		require.NoError(t, err)

		assert.Empty(t, a.Clusters[1])
		assert.Equal(t, Point{2, 2}, a.Centroids[1])
		assert.Equal(t, 1, a.Reseeds)
		assert.Equal(t, []int{3}, src.calls)
	})

	t.Run("Should not mutate its inputs", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 0)
		data := pts([2]float64{0, 0}, [2]float64{4, 4})
		centroids := pts([2]float64{1, 1}, [2]float64{3, 3})
		dataCopy := append([]Point(nil), data...)
		centroidsCopy := append([]Point(nil), centroids...)

		_, err := engine.Step(context.Background(), data, 2, centroids)
		require.NoError(t, err)

		assert.Equal(t, dataCopy, data)
		assert.Equal(t, centroidsCopy, centroids)
	})

	t.Run("Should return empty clusters as empty slices", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 0)
		a, err := engine.Step(context.Background(), pts([2]float64{0, 0}), 2, pts([2]float64{0, 0}, [2]float64{9, 9}))
		require.NoError(t, err)

		assert.NotNil(t, a.Clusters[1])
		assert.Len(t, a.Clusters[1], 0)
	})
}

func TestStepProperties(t *testing.T) {
	gen := NewEngine(NewSource(7), 0)
	data, err := gen.Generate(500)
	require.NoError(t, err)
	centroids := pts([2]float64{0.1, 0.1}, [2]float64{0.9, 0.1}, [2]float64{0.5, 0.9}, [2]float64{0.5, 0.5})

	engine := NewEngine(NewSource(11), 0)
	first, err := engine.Step(context.Background(), data, 4, centroids)
	require.NoError(t, err)

	t.Run("Should conserve the number of points", func(t *testing.T) {
		assert.Equal(t, len(data), totalPoints(first.Clusters))
		assert.Len(t, first.Clusters, 4)
		assert.Len(t, first.Centroids, 4)
	})

	t.Run("Should place each centroid at the mean of its cluster", func(t *testing.T) {
		for i, members := range first.Clusters {
			require.NotEmpty(t, members)
			var sx, sy float64
			for _, p := range members {
				sx += p.X
				sy += p.Y
			}
			assert.InDelta(t, sx/float64(len(members)), first.Centroids[i].X, 1e-12)
			assert.InDelta(t, sy/float64(len(members)), first.Centroids[i].Y, 1e-12)
		}
	})

	t.Run("Should assign every point to its nearest centroid", func(t *testing.T) {
		for i, members := range first.Clusters {
			for _, p := range members {
				for j, c := range centroids {
					assert.LessOrEqual(t, p.Distance(centroids[i]), p.Distance(c), "cluster %d vs %d", i, j)
				}
			}
		}
	})

	t.Run("Should be deterministic across calls", func(t *testing.T) {
		second, err := engine.Step(context.Background(), data, 4, centroids)
		require.NoError(t, err)
		assert.Equal(t, first.Clusters, second.Clusters)
		assert.Equal(t, first.Centroids, second.Centroids)
	})
}

func TestStepInvalidInput(t *testing.T) {
	engine := NewEngine(&sequenceSource{}, 0)
	one := pts([2]float64{0, 0})

	tests := []struct {
		name      string
		data      []Point
		k         int
		centroids []Point
		want      error
	}{
		{name: "empty data", data: nil, k: 1, centroids: one, want: ErrEmptyDataset},
		{name: "zero k", data: one, k: 0, centroids: nil, want: ErrInvalidK},
		{name: "negative k", data: one, k: -2, centroids: nil, want: ErrInvalidK},
		{name: "too few centroids", data: one, k: 2, centroids: one, want: ErrCentroidCount},
		{name: "too many centroids", data: one, k: 1, centroids: append(one, one...), want: ErrCentroidCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Step(context.Background(), tt.data, tt.k, tt.centroids)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsInputError(err))

			_, err = engine.Converge(context.Background(), tt.data, tt.k, tt.centroids)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConverge(t *testing.T) {
	data := pts([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{10, 0}, [2]float64{10, 1})

	t.Run("Should stop after one effective update", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 100)

		res, err := engine.Converge(context.Background(), data, 2, pts([2]float64{0, 0}, [2]float64{10, 0}))
		require.NoError(t, err)

		assert.True(t, res.Converged)
		assert.Equal(t, 2, res.Iterations)
		assert.Equal(t, pts([2]float64{0, 0.5}, [2]float64{10, 0.5}), res.Centroids)
		assert.Equal(t, [][]Point{
			pts([2]float64{0, 0}, [2]float64{0, 1}),
			pts([2]float64{10, 0}, [2]float64{10, 1}),
		}, res.Clusters)
	})

	t.Run("Should return stable centroids unchanged", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 0)
		stable := pts([2]float64{0, 0.5}, [2]float64{10, 0.5})

		res, err := engine.Converge(context.Background(), data, 2, stable)
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.Equal(t, 1, res.Iterations)
		assert.Equal(t, stable, res.Centroids)

		a, err := engine.Step(context.Background(), data, 2, stable)
		require.NoError(t, err)
		assert.Equal(t, stable, a.Centroids)
	})

	t.Run("Should stop at the iteration cap when reseeds keep changing", func(t *testing.T) {
		// the third cluster stays empty and alternates between the two points
		src := &sequenceSource{ints: []int{0, 1}}
		engine := NewEngine(src, 5)
		twoPoints := pts([2]float64{0, 0}, [2]float64{10, 0})

		res, err := engine.Converge(context.Background(), twoPoints, 3,
			pts([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{100, 0}))
		require.NoError(t, err)

		assert.False(t, res.Converged)
		assert.Equal(t, 5, res.Iterations)
		assert.Equal(t, 5, res.Reseeds)
		assert.Len(t, res.Centroids, 3)
		assert.Equal(t, 2, totalPoints(res.Clusters))
	})

	t.Run("Should honour context cancellation", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := engine.Converge(ctx, data, 2, pts([2]float64{0, 0}, [2]float64{10, 0}))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Should not alias the caller's centroids", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 0)
		initial := pts([2]float64{0, 0}, [2]float64{10, 0})

		_, err := engine.Converge(context.Background(), data, 2, initial)
		require.NoError(t, err)
		assert.Equal(t, pts([2]float64{0, 0}, [2]float64{10, 0}), initial)
	})
}

func TestMaxIterations(t *testing.T) {
	engine := NewEngine(&sequenceSource{}, -3)
	assert.Equal(t, 0, engine.MaxIterations())

	engine.SetMaxIterations(42)
	assert.Equal(t, 42, engine.MaxIterations())
}

// expiringContext reports Canceled once Err has been called more than allowed times.
type expiringContext struct {
	context.Context
	allowed int
	calls   int
}

func (c *expiringContext) Err() error {
	c.calls++
	if c.calls > c.allowed {
		return context.Canceled
	}
	return nil
}

func TestStepCancellation(t *testing.T) {
	data := make([]Point, 3*ctxCheckInterval)
	for i := range data {
		data[i] = Point{X: float64(i), Y: 0}
	}
	centroids := pts([2]float64{0, 0}, [2]float64{5000, 0})

	t.Run("Should not start on a canceled context", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := engine.Step(ctx, data, 2, centroids)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Should stop in the middle of a pass", func(t *testing.T) {
		engine := NewEngine(&sequenceSource{}, 0)
		ctx := &expiringContext{Context: context.Background(), allowed: 1}

		_, err := engine.Step(ctx, data, 2, centroids)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 2, ctx.calls)
	})
}

func TestStepWithExtremeCoordinates(t *testing.T) {
	engine := NewEngine(&sequenceSource{}, 0)

	t.Run("Should average values whose sum overflows", func(t *testing.T) {
		a, err := engine.Step(context.Background(), pts([2]float64{1e308, 0}, [2]float64{1e308, 0}), 1, pts([2]float64{0, 0}))
		require.NoError(t, err)
		assert.Equal(t, pts([2]float64{1e308, 0}), a.Centroids)
	})

	t.Run("Should assign points whose distances overflow", func(t *testing.T) {
		data := pts([2]float64{1.7e308, 0}, [2]float64{-1.7e308, 0})
		a, err := engine.Step(context.Background(), data, 2, pts([2]float64{-1.6e308, 0}, [2]float64{1.6e308, 0}))
		require.NoError(t, err)

		assert.Equal(t, [][]Point{
			pts([2]float64{-1.7e308, 0}),
			pts([2]float64{1.7e308, 0}),
		}, a.Clusters)
		for _, c := range a.Centroids {
			assert.True(t, c.IsFinite())
		}
	})
}
