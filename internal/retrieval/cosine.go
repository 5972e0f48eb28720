package retrieval

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity between a and b in [-1, 1].
//
// Degenerate inputs are not errors: if either vector is empty, or either
// has zero magnitude, the result is 0 — "no similarity signal", and for
// zero vectors specifically "maximally dissimilar to everything" rather
// than equally similar to everything. Vectors of differing non-zero
// length are a hard error wrapping ErrDimensionMismatch.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("retrieval: cosine: %w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
