package solver

import (
	"encoding/json"
	"testing"
)

func TestNewDefaultAdam(t *testing.T) {
	s, err := NewDefaultAdam(5e-3, 1)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}

	if s.Type != Adam {
		t.Errorf("expected solver type %v, got %v", Adam, s.Type)
	}
	if s.Solver == nil {
		t.Errorf("expected a usable wrapped solver")
	}
}

func TestSolverJSONRoundTrip(t *testing.T) {
	s, err := NewAdam(1e-3, 1e-8, 0.9, 0.999, 4)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("could not marshal solver: %v", err)
	}

	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("could not unmarshal solver: %v", err)
	}

	if decoded.Type != Adam {
		t.Errorf("expected solver type %v, got %v", Adam, decoded.Type)
	}
	if decoded.Config.(AdamConfig) != s.Config.(AdamConfig) {
		t.Errorf("expected configuration %v, got %v", s.Config,
			decoded.Config)
	}
	if decoded.Solver == nil {
		t.Errorf("expected the decoded solver to be usable")
	}
}
