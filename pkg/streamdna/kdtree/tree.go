// Package kdtree implements a static k-d tree supporting axis-aligned range
// queries.
//
// Nodes live in a single slice and refer to their children by index, so a
// built tree is a flat value that can be shared read-only between
// goroutines.
package kdtree

import (
	"errors"
	"fmt"
	"sort"
)

var ErrDims = errors.New("point dimension mismatch")

const none = int32(-1)

type node struct {
	left, right int32
	axis        uint8
}

// Tree is an immutable k-d tree whose points each carry a value of type T.
// Node i holds point i: coords[i*dims:(i+1)*dims] and values[i].
type Tree[T any] struct {
	dims   int
	coords []float64
	values []T
	nodes  []node
	root   int32
}

// Box is an inclusive axis-aligned query region.
type Box struct {
	Lo, Hi []float64
}

// Contains reports whether p lies inside the box on every dimension.
func (b Box) Contains(p []float64) bool {
	for i, v := range p {
		if v < b.Lo[i] || v > b.Hi[i] {
			return false
		}
	}
	return true
}

// Build constructs a balanced tree by splitting at the median along
// dimensions taken in turn. points[i] is stored together with values[i].
func Build[T any](dims int, points [][]float64, values []T) (*Tree[T], error) {
	if dims <= 0 || dims > 255 {
		return nil, fmt.Errorf("%w: unsupported dimension %d", ErrDims, dims)
	}
	if len(points) != len(values) {
		return nil, fmt.Errorf("kdtree: %d points but %d values", len(points), len(values))
	}
	for i, p := range points {
		if len(p) != dims {
			return nil, fmt.Errorf("%w: point %d has %d coordinates, want %d", ErrDims, i, len(p), dims)
		}
	}

	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}

	t := &Tree[T]{
		dims:   dims,
		coords: make([]float64, 0, len(points)*dims),
		values: make([]T, 0, len(points)),
		nodes:  make([]node, 0, len(points)),
	}
	t.root = t.build(points, values, order, 0)
	return t, nil
}

func (t *Tree[T]) build(points [][]float64, values []T, order []int, depth int) int32 {
	if len(order) == 0 {
		return none
	}
	axis := depth % t.dims
	sort.Slice(order, func(a, b int) bool {
		return points[order[a]][axis] < points[order[b]][axis]
	})
	mid := len(order) / 2

	id := int32(len(t.nodes))
	src := order[mid]
	t.coords = append(t.coords, points[src]...)
	t.values = append(t.values, values[src])
	t.nodes = append(t.nodes, node{left: none, right: none, axis: uint8(axis)})

	// Children are built after the node is appended, so indexes stay valid.
	left := t.build(points, values, order[:mid], depth+1)
	right := t.build(points, values, order[mid+1:], depth+1)
	t.nodes[id].left = left
	t.nodes[id].right = right
	return id
}

// Len returns the number of points in the tree.
func (t *Tree[T]) Len() int {
	return len(t.nodes)
}

// Dims returns the dimensionality of the tree.
func (t *Tree[T]) Dims() int {
	return t.dims
}

func (t *Tree[T]) point(id int32) []float64 {
	start := int(id) * t.dims
	return t.coords[start : start+t.dims]
}

// Range calls fn for every point inside box, in no particular order. The
// point slice is owned by the tree and must not be modified. Returning false
// from fn stops the search.
func (t *Tree[T]) Range(box Box, fn func(point []float64, value T) bool) error {
	if len(box.Lo) != t.dims || len(box.Hi) != t.dims {
		return fmt.Errorf("%w: box has %d/%d bounds, want %d", ErrDims, len(box.Lo), len(box.Hi), t.dims)
	}
	if t.root == none {
		return nil
	}

	stack := make([]int32, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.nodes[id]
		p := t.point(id)
		if box.Contains(p) && !fn(p, t.values[id]) {
			return nil
		}

		// Equal coordinates may sit on either side after the median split.
		split := p[n.axis]
		if n.left != none && box.Lo[n.axis] <= split {
			stack = append(stack, n.left)
		}
		if n.right != none && box.Hi[n.axis] >= split {
			stack = append(stack, n.right)
		}
	}
	return nil
}

// Query returns the values of every point inside box.
func (t *Tree[T]) Query(box Box) ([]T, error) {
	var out []T
	err := t.Range(box, func(_ []float64, v T) bool {
		out = append(out, v)
		return true
	})
	return out, err
}
