package device

import (
	"math"

	"golang.org/x/exp/constraints"
)

// limitAround clamps v to [center-delta, center+delta].
func limitAround[T constraints.Float](v, center, delta T) T {
	if v > center+delta {
		return center + delta
	}
	if v < center-delta {
		return center - delta
	}
	return v
}

// atLeast returns x with its magnitude raised to at least min, keeping the
// sign (zero counts as positive).
func atLeast[T constraints.Float](x, min T) T {
	if T(math.Abs(float64(x))) >= min {
		return x
	}
	if x < 0 {
		return -min
	}
	return min
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
