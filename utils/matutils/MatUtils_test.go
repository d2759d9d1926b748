package matutils

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMaxVec(t *testing.T) {
	vec := mat.NewVecDense(4, []float64{1, 3, 2, 3})

	// The first of tied maxima is returned
	if idx := MaxVec(vec); idx != 1 {
		t.Errorf("MaxVec = %v, expected 1", idx)
	}
}

func TestVecOnes(t *testing.T) {
	ones := VecOnes(3)

	if ones.Len() != 3 {
		t.Fatalf("expected length 3, got %d", ones.Len())
	}
	for i := 0; i < ones.Len(); i++ {
		if ones.AtVec(i) != 1.0 {
			t.Errorf("element %d = %v, expected 1", i, ones.AtVec(i))
		}
	}
}
