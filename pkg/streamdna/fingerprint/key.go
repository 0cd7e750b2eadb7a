package fingerprint

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

const (
	// WindowSize is the number of segments summarised by one Descriptor.
	WindowSize = 30
	// Dims is the number of Descriptor coordinates.
	Dims = 6
	// SliceSize is the length of the first four proportional sub-slices.
	// The fifth covers the rest of the window.
	SliceSize = 6
)

var (
	ErrWindowSize = errors.New("window must hold exactly 30 sizes")
	ErrZeroTotal  = errors.New("window total is zero")
)

// Descriptor is the k-d tree key of a window: the total size followed by
// the share of the total carried by each of five consecutive sub-slices.
type Descriptor [Dims]float64

// Total is the summed size of the window.
func (d Descriptor) Total() float64 {
	return d[0]
}

// Fractions returns the five proportional components.
func (d Descriptor) Fractions() [Dims - 1]float64 {
	var out [Dims - 1]float64
	copy(out[:], d[1:])
	return out
}

// Key computes the Descriptor of a 30-element window.
//
// Scaling every size by c > 0 scales Total by c and leaves the fractions
// unchanged, which is what lets a throughput trace measured with protocol
// overhead match segment sizes taken from disk.
func Key(window []float64) (Descriptor, error) {
	var d Descriptor
	if len(window) != WindowSize {
		return d, fmt.Errorf("%w: got %d", ErrWindowSize, len(window))
	}

	total := floats.Sum(window)
	if total == 0 {
		return d, ErrZeroTotal
	}

	d[0] = total
	for i := 0; i < Dims-2; i++ {
		d[i+1] = floats.Sum(window[i*SliceSize:(i+1)*SliceSize]) / total
	}
	d[Dims-1] = floats.Sum(window[(Dims-2)*SliceSize:]) / total
	return d, nil
}
