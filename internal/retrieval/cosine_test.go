package retrieval

import (
	"errors"
	"math"
	"testing"
)

func Test_Cosine_SelfSimilarityIsOne(t *testing.T) {
	t.Parallel()

	vectors := [][]float32{
		{1, 2, 3},
		{-0.5, 0.25, 4},
		{1e-3, 1e3},
	}
	for _, v := range vectors {
		got, err := Cosine(v, v)
		if err != nil {
			t.Fatalf("Cosine(%v, %v): %v", v, v, err)
		}
		if math.Abs(got-1.0) > 1e-9 {
			t.Errorf("Cosine(%v, %v) = %v, want 1.0", v, v, got)
		}
	}
}

func Test_Cosine_Symmetry(t *testing.T) {
	t.Parallel()

	a := []float32{1, 0, 2}
	b := []float32{-1, 3, 0.5}

	ab, err := Cosine(a, b)
	if err != nil {
		t.Fatalf("Cosine(a, b): %v", err)
	}
	ba, err := Cosine(b, a)
	if err != nil {
		t.Fatalf("Cosine(b, a): %v", err)
	}
	if math.Abs(ab-ba) > 1e-12 {
		t.Errorf("Cosine not symmetric: %v vs %v", ab, ba)
	}
}

func Test_Cosine_DegenerateInputsScoreZero(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b []float32
	}{
		{"both empty", nil, nil},
		{"one empty", []float32{}, []float32{1, 1}},
		{"zero vector", []float32{0, 0}, []float32{1, 1}},
		{"both zero", []float32{0, 0, 0}, []float32{0, 0, 0}},
	}
	for _, tc := range cases {
		got, err := Cosine(tc.a, tc.b)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if got != 0 {
			t.Errorf("%s: Cosine = %v, want 0", tc.name, got)
		}
	}
}

func Test_Cosine_DimensionMismatch(t *testing.T) {
	t.Parallel()

	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
}

func Test_Cosine_OppositeVectors(t *testing.T) {
	t.Parallel()

	got, err := Cosine([]float32{1, 1}, []float32{-1, -1})
	if err != nil {
		t.Fatalf("Cosine: %v", err)
	}
	if math.Abs(got+1.0) > 1e-9 {
		t.Errorf("Cosine = %v, want -1.0", got)
	}
}
