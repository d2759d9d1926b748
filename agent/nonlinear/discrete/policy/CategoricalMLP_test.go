package policy

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
	G "gorgonia.org/gorgonia"

	env "github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/gopg/network"
)

func newCartpole(t *testing.T) *cartpole.Discrete {
	t.Helper()

	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := env.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, uint64(1223))
	task := cartpole.NewBalance(starter, 500, cartpole.FailAngle)
	c, _ := cartpole.NewDiscrete(task, 0.99)
	return c
}

func TestSelectActionReturnsLegalActions(t *testing.T) {
	c := newCartpole(t)
	p, err := NewCategoricalMLP(c, 1, G.NewGraph(), []int{8}, []bool{true},
		[]*network.Activation{network.ReLU()}, G.GlorotN(1.0), 14)
	if err != nil {
		t.Fatalf("could not create policy: %v", err)
	}
	defer p.Close()

	step := c.Reset()
	for i := 0; i < 25; i++ {
		action := p.SelectAction(step)

		if action.Len() != 1 {
			t.Fatalf("expected a 1-dimensional action, got %d dimensions",
				action.Len())
		}
		a := action.AtVec(0)
		if a != float64(int(a)) {
			t.Errorf("expected a discrete action, got %v", a)
		}
		if int(a) < cartpole.MinDiscreteAction ||
			int(a) > cartpole.MaxDiscreteAction {
			t.Errorf("action %v outside the legal action set", a)
		}
	}
}

func TestSelectActionEvalModeIsGreedy(t *testing.T) {
	c := newCartpole(t)
	p, err := NewCategoricalMLP(c, 1, G.NewGraph(), []int{8}, []bool{true},
		[]*network.Activation{network.ReLU()}, G.GlorotN(1.0), 14)
	if err != nil {
		t.Fatalf("could not create policy: %v", err)
	}
	defer p.Close()

	p.Eval()
	if !p.IsEval() {
		t.Fatalf("expected the policy to be in evaluation mode")
	}

	// Greedy action selection on a fixed state is deterministic when
	// the logits have a unique maximum
	step := c.Reset()
	first := p.SelectAction(step).AtVec(0)
	for i := 0; i < 10; i++ {
		if a := p.SelectAction(step).AtVec(0); a != first {
			t.Errorf("greedy selection changed actions on a fixed state: "+
				"%v then %v", first, a)
		}
	}
}

func TestLogPdfOfValidatesActionCount(t *testing.T) {
	const batch = 4

	c := newCartpole(t)
	p, err := NewCategoricalMLP(c, batch, G.NewGraph(), []int{8},
		[]bool{true}, []*network.Activation{network.ReLU()},
		G.GlorotN(1.0), 14)
	if err != nil {
		t.Fatalf("could not create policy: %v", err)
	}
	defer p.Close()

	features := c.ObservationSpec().Shape.Len()
	states := make([]float64, features*batch)
	actions := make([]float64, batch-1)

	if _, err := p.LogPdfOf(states, actions); err == nil {
		t.Errorf("expected an error when the number of actions does not " +
			"match the policy's batch size")
	}
}

func TestSelectActionPanicsOnBatchPolicy(t *testing.T) {
	c := newCartpole(t)
	p, err := NewCategoricalMLP(c, 4, G.NewGraph(), []int{8}, []bool{true},
		[]*network.Activation{network.ReLU()}, G.GlorotN(1.0), 14)
	if err != nil {
		t.Fatalf("could not create policy: %v", err)
	}
	defer p.Close()

	defer func() {
		if recover() == nil {
			t.Errorf("expected action selection with a batch policy to " +
				"panic")
		}
	}()
	p.SelectAction(c.Reset())
}
