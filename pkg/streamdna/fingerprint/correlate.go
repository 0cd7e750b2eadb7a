package fingerprint

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	// CorrelationThreshold must be strictly exceeded for a match.
	CorrelationThreshold = 0.9
	// Outliers is the number of positions dropped before correlating.
	Outliers = 4
)

var ErrLengthMismatch = errors.New("capture and candidate windows differ in length")

// Verdict is the result of comparing a capture window with a candidate.
type Verdict struct {
	Accepted    bool
	Coefficient float64 // Pearson coefficient of the reduced windows, NaN if undefined
	Outliers    []int   // dropped positions, largest relative difference first
}

// Verify decides whether candidate (database sizes) and capture (measured
// throughput) describe the same segment sequence.
//
// The four positions with the largest relative difference
// |candidate[i]-capture[i]| / capture[i] are removed from both windows and
// the Pearson coefficient of what remains is compared to
// CorrelationThreshold. A zero capture bin has an infinite relative
// difference and is therefore always among the outliers. Ties are resolved
// toward the higher index.
func Verify(capture, candidate []float64) (Verdict, error) {
	if len(capture) != len(candidate) {
		return Verdict{}, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(capture), len(candidate))
	}
	if len(capture) <= Outliers+1 {
		return Verdict{}, fmt.Errorf("%w: need more than %d positions, got %d", ErrLengthMismatch, Outliers+1, len(capture))
	}

	outliers := rankOutliers(capture, candidate)

	dropped := make([]bool, len(capture))
	for _, i := range outliers {
		dropped[i] = true
	}
	x := make([]float64, 0, len(capture)-Outliers)
	y := make([]float64, 0, len(capture)-Outliers)
	for i := range capture {
		if dropped[i] {
			continue
		}
		x = append(x, capture[i])
		y = append(y, candidate[i])
	}

	coef := stat.Correlation(x, y, nil)
	return Verdict{
		Accepted:    accepts(coef),
		Coefficient: coef,
		Outliers:    outliers,
	}, nil
}

// accepts is false for NaN, which stat.Correlation returns when either
// sequence is constant.
func accepts(coef float64) bool {
	return coef > CorrelationThreshold
}

func relativeDiff(capture, candidate float64) float64 {
	if capture == 0 {
		return math.Inf(1)
	}
	return math.Abs((candidate - capture) / capture)
}

func rankOutliers(capture, candidate []float64) []int {
	type diff struct {
		value float64
		index int
	}
	diffs := make([]diff, len(capture))
	for i := range capture {
		diffs[i] = diff{value: relativeDiff(capture[i], candidate[i]), index: i}
	}
	sort.Slice(diffs, func(a, b int) bool {
		if diffs[a].value != diffs[b].value {
			return diffs[a].value > diffs[b].value
		}
		return diffs[a].index > diffs[b].index
	})

	out := make([]int, Outliers)
	for i := range out {
		out[i] = diffs[i].index
	}
	return out
}
