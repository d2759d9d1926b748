package initwfn

import (
	"math"
	"testing"
)

func TestNewGlorotN(t *testing.T) {
	w, err := NewGlorotN(math.Sqrt(2.0))
	if err != nil {
		t.Fatalf("could not create init function: %v", err)
	}

	if w.Type != GlorotN {
		t.Errorf("expected type %v, got %v", GlorotN, w.Type)
	}
	if w.InitWFn() == nil {
		t.Errorf("expected a usable wrapped init function")
	}
}

func TestNewZeroes(t *testing.T) {
	w, err := NewZeroes()
	if err != nil {
		t.Fatalf("could not create init function: %v", err)
	}

	if w.Type != Zeroes {
		t.Errorf("expected type %v, got %v", Zeroes, w.Type)
	}
	if w.InitWFn() == nil {
		t.Errorf("expected a usable wrapped init function")
	}
}
