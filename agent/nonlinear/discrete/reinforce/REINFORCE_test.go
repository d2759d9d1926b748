package reinforce

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/gopg/agent"
	env "github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/gopg/initwfn"
	"github.com/samuelfneumann/gopg/network"
	"github.com/samuelfneumann/gopg/solver"
)

const (
	testEpochLength  = 8
	testEpisodeSteps = 4
)

func newTestEnv(t *testing.T) *cartpole.Discrete {
	t.Helper()

	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := env.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, uint64(1223))
	task := cartpole.NewBalance(starter, testEpisodeSteps,
		cartpole.FailAngle)
	c, _ := cartpole.NewDiscrete(task, 0.99)
	return c
}

func newTestConfig(t *testing.T) CategoricalMLPConfig {
	t.Helper()

	policySolver, err := solver.NewDefaultAdam(5e-3, 1)
	if err != nil {
		t.Fatalf("could not create policy solver: %v", err)
	}
	valueSolver, err := solver.NewDefaultAdam(5e-3, 1)
	if err != nil {
		t.Fatalf("could not create value solver: %v", err)
	}
	initWFn, err := initwfn.NewGlorotN(math.Sqrt(2.0))
	if err != nil {
		t.Fatalf("could not create init function: %v", err)
	}

	nonlinearity := network.ReLU()
	return CategoricalMLPConfig{
		PolicyLayers:      []int{10},
		PolicyBiases:      []bool{true},
		PolicyActivations: []*network.Activation{nonlinearity},

		ValueFnLayers:      []int{10},
		ValueFnBiases:      []bool{true},
		ValueFnActivations: []*network.Activation{nonlinearity},

		InitWFn:      initWFn,
		PolicySolver: policySolver,
		VSolver:      valueSolver,

		ValueGradSteps:          2,
		EpochLength:             testEpochLength,
		FinishEpisodeOnEpochEnd: false,
		Gamma:                   0.99,
	}
}

// runEpoch steps the agent through the environment for one full epoch
// of data collection and triggers the update on the final step
func runEpoch(t *testing.T, a agent.Agent, c *cartpole.Discrete) {
	t.Helper()

	step := c.Reset()
	if err := a.ObserveFirst(step); err != nil {
		t.Fatalf("could not observe first step: %v", err)
	}

	for i := 0; i < testEpochLength; i++ {
		action := a.SelectAction(step)
		step, _ = c.Step(action)
		if err := a.Observe(action, step); err != nil {
			t.Fatalf("step %d: could not observe: %v", i, err)
		}
		if err := a.Step(); err != nil {
			t.Fatalf("step %d: could not update agent: %v", i, err)
		}

		if step.Last() {
			a.EndEpisode()
			step = c.Reset()
			if err := a.ObserveFirst(step); err != nil {
				t.Fatalf("could not observe first step: %v", err)
			}
		}
	}
}

// weightsNamed returns a copy of the values of the learnable with the
// argument name
func weightsNamed(t *testing.T, net network.NeuralNet,
	name string) []float64 {
	t.Helper()

	for _, node := range net.Learnables() {
		if node.Name() == name {
			data := node.Value().Data().([]float64)
			out := make([]float64, len(data))
			copy(out, data)
			return out
		}
	}
	t.Fatalf("no learnable named %v", name)
	return nil
}

func TestREINFORCECompletesAnEpoch(t *testing.T) {
	c := newTestEnv(t)
	a, err := newTestConfig(t).CreateAgent(c, 14)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}

	r, ok := a.(*REINFORCE)
	if !ok {
		t.Fatalf("expected a *REINFORCE agent, got %T", a)
	}
	defer r.Close()

	runEpoch(t, r, c)

	if r.CompletedEpochs() != 1 {
		t.Errorf("expected 1 completed epoch, got %d", r.CompletedEpochs())
	}
}

func TestREINFORCEBaselineLearnsFromStates(t *testing.T) {
	c := newTestEnv(t)
	a, err := newTestConfig(t).CreateAgent(c, 14)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}

	r, ok := a.(*REINFORCE)
	if !ok {
		t.Fatalf("expected a *REINFORCE agent, got %T", a)
	}
	defer r.Close()

	// The first-layer weight gradient is xᵀδ, so it is identically
	// zero unless the stored states are set as the training value
	// network's input before regression
	before := weightsNamed(t, r.trainValueFn, "L0W")

	runEpoch(t, r, c)

	after := weightsNamed(t, r.trainValueFn, "L0W")
	changed := false
	for i := range before {
		if before[i] != after[i] {
			changed = true
			break
		}
	}
	if !changed {
		t.Errorf("first-layer value function weights unchanged after an " +
			"update epoch")
	}
}

func TestREINFORCEEvalModeSkipsUpdates(t *testing.T) {
	c := newTestEnv(t)
	a, err := newTestConfig(t).CreateAgent(c, 14)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}

	r := a.(*REINFORCE)
	defer r.Close()

	r.Eval()
	if !r.IsEval() {
		t.Errorf("expected the agent to be in evaluation mode")
	}
	runEpoch(t, r, c)

	if r.CompletedEpochs() != 0 {
		t.Errorf("expected no completed epochs in evaluation mode, got %d",
			r.CompletedEpochs())
	}
}
