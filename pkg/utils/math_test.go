package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("expected [0.6 0.8], got %v", v)
	}
}

func TestNormalizeL2Zero(t *testing.T) {
	v := []float32{0, 0, 0}
	NormalizeL2(v)
	for i, x := range v {
		if x != 0 {
			t.Errorf("element %d changed: %v", i, x)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0}
	if s := CosineSimilarity(a, b); math.Abs(s-1.0) > 1e-9 {
		t.Errorf("identical vectors: expected 1.0, got %f", s)
	}
	c := []float32{0, 1}
	if s := CosineSimilarity(a, c); math.Abs(s) > 1e-9 {
		t.Errorf("orthogonal vectors: expected 0, got %f", s)
	}
	if s := CosineSimilarity(a, []float32{1}); s != 0 {
		t.Errorf("length mismatch: expected 0, got %f", s)
	}
}
