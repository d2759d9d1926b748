package timestep

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestStepTypePredicates(t *testing.T) {
	obs := mat.NewVecDense(2, []float64{0, 0})

	first := New(First, 0, 1, obs, 0)
	if !first.First() || first.Mid() || first.Last() {
		t.Errorf("expected a First step")
	}

	mid := New(Mid, 1, 1, obs, 1)
	if mid.First() || !mid.Mid() || mid.Last() {
		t.Errorf("expected a Mid step")
	}

	last := New(Last, 1, 1, obs, 2)
	if last.First() || last.Mid() || !last.Last() {
		t.Errorf("expected a Last step")
	}
}

func TestEndTypeDistinguishesTerminalsFromCutoffs(t *testing.T) {
	obs := mat.NewVecDense(2, []float64{0, 0})

	step := New(Mid, 1, 1, obs, 1)
	if step.EndType != Nil {
		t.Errorf("expected a new timestep to have end type %v, got %v",
			Nil, step.EndType)
	}
	if step.TerminalEnd() {
		t.Errorf("a step with end type Nil should not be terminal")
	}

	step.SetEnd(Timeout)
	if step.TerminalEnd() {
		t.Errorf("a cutoff should not be a terminal state")
	}

	step.SetEnd(TerminalStateReached)
	if !step.TerminalEnd() {
		t.Errorf("expected a terminal state")
	}
}
