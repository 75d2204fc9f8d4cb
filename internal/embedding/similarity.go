package embedding

import (
	"fmt"
	"math"

	"github.com/arturoeanton/launchpad-match/internal/port"
)

// Similarity returns the cosine similarity of a and b in [-1, 1].
//
// Empty vectors, vectors of different length and zero-magnitude vectors have
// no defined direction and yield an error wrapping port.ErrMalformedVector.
func Similarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("%w: empty vector", port.ErrMalformedVector)
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch %d != %d", port.ErrMalformedVector, len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, fmt.Errorf("%w: zero magnitude", port.ErrMalformedVector)
	}

	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(s) {
		return 0, fmt.Errorf("%w: non-finite component", port.ErrMalformedVector)
	}
	return math.Max(-1, math.Min(1, s)), nil
}
