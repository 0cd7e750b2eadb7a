package kdtree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func bruteForce(points [][]float64, box Box) []int {
	var out []int
	for i, p := range points {
		if box.Contains(p) {
			out = append(out, i)
		}
	}
	return out
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestRangeMatchesBruteForce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dims := rapid.IntRange(1, 6).Draw(t, "dims")
		// a small value range forces duplicate coordinates
		coord := rapid.Map(rapid.IntRange(0, 10), func(v int) float64 { return float64(v) })
		points := rapid.SliceOfN(rapid.SliceOfN(coord, dims, dims), 0, 200).Draw(t, "points")

		tree, err := Build(dims, points, indexes(len(points)))
		require.NoError(t, err)
		require.Equal(t, len(points), tree.Len())

		lo := make([]float64, dims)
		hi := make([]float64, dims)
		for d := 0; d < dims; d++ {
			a := coord.Draw(t, "a")
			b := coord.Draw(t, "b")
			if a > b {
				a, b = b, a
			}
			lo[d], hi[d] = a, b
		}
		box := Box{Lo: lo, Hi: hi}

		got, err := tree.Query(box)
		require.NoError(t, err)
		sort.Ints(got)

		want := bruteForce(points, box)
		if len(want) == 0 {
			assert.Empty(t, got)
		} else {
			assert.Equal(t, want, got)
		}
	})
}

func TestSelfContainment(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := make([][]float64, 5000)
	for i := range points {
		p := make([]float64, 6)
		p[0] = rng.Float64() * 1e8
		for d := 1; d < 6; d++ {
			p[d] = rng.Float64()
		}
		points[i] = p
	}

	tree, err := Build(6, points, indexes(len(points)))
	require.NoError(t, err)

	for i, p := range points {
		got, err := tree.Query(Box{Lo: p, Hi: p})
		require.NoError(t, err)
		assert.Contains(t, got, i)
	}
}

func TestEmptyTree(t *testing.T) {
	tree, err := Build[string](3, nil, nil)
	require.NoError(t, err)

	got, err := tree.Query(Box{Lo: []float64{0, 0, 0}, Hi: []float64{1, 1, 1}})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, tree.Len())
}

func TestRangeStopsEarly(t *testing.T) {
	points := [][]float64{{1}, {2}, {3}, {4}}
	tree, err := Build(1, points, indexes(len(points)))
	require.NoError(t, err)

	calls := 0
	err = tree.Range(Box{Lo: []float64{0}, Hi: []float64{10}}, func(_ []float64, _ int) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(2, [][]float64{{1, 2}, {3}}, []int{0, 1})
	require.ErrorIs(t, err, ErrDims)

	_, err = Build(2, [][]float64{{1, 2}}, []int{})
	require.Error(t, err)

	_, err = Build[int](0, nil, nil)
	require.ErrorIs(t, err, ErrDims)

	tree, err := Build(2, [][]float64{{1, 2}}, []int{0})
	require.NoError(t, err)
	_, err = tree.Query(Box{Lo: []float64{0}, Hi: []float64{1}})
	require.ErrorIs(t, err, ErrDims)
}
