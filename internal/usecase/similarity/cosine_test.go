package similarity

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/pictag/internal/domain"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0}, []float32{5, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite maps to zero", []float32{1, 0}, []float32{-1, 0}, 0},
		{"45 degrees", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Cosine(tc.a, tc.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tc.want) > 1e-6 {
				t.Errorf("Cosine = %v, want %v", got, tc.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("Cosine = %v out of [0,1]", got)
			}
		})
	}
}

func TestCosine_Undefined(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"zero vector", []float32{0, 0}, []float32{1, 1}},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}},
		{"empty", nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Cosine(tc.a, tc.b)
			if !errors.Is(err, domain.ErrScoringUnavailable) {
				t.Errorf("expected ErrScoringUnavailable, got %v", err)
			}
		})
	}
}
