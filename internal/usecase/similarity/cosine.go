package similarity

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/pictag/internal/domain"
)

// Cosine returns the cosine similarity of a and b mapped into [0,1].
// Negative similarity is reported as 0. Empty, zero-norm or differently sized vectors
// have no defined similarity and yield domain.ErrScoringUnavailable.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("cosine of %d and %d dimensions: %w", len(a), len(b), domain.ErrScoringUnavailable)
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, fmt.Errorf("cosine of zero vector: %w", domain.ErrScoringUnavailable)
	}

	c := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(c) {
		return 0, fmt.Errorf("cosine is NaN: %w", domain.ErrScoringUnavailable)
	}
	return clamp01(math.Max(-1, math.Min(1, c))), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
