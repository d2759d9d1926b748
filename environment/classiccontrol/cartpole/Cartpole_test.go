package cartpole

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/gopg/environment"
	ts "github.com/samuelfneumann/gopg/timestep"
)

// fixedStarter always starts episodes from the same state
type fixedStarter struct {
	state []float64
}

func (f fixedStarter) Start() mat.Vector {
	state := make([]float64, len(f.state))
	copy(state, f.state)
	return mat.NewVecDense(len(state), state)
}

func doNothing() *mat.VecDense {
	return mat.NewVecDense(1, []float64{1.0})
}

func TestResetWithinStarterBounds(t *testing.T) {
	const bound = 0.05
	interval := r1.Interval{Min: -bound, Max: bound}
	starter := env.NewUniformStarter([]r1.Interval{
		interval,
		interval,
		interval,
		interval,
	}, uint64(1223))

	task := NewBalance(starter, 500, FailAngle)
	c, firstStep := NewDiscrete(task, 0.99)

	if !firstStep.First() {
		t.Errorf("expected the starting timestep to be a First step")
	}

	for i := 0; i < 10; i++ {
		step := c.Reset()

		if !step.First() {
			t.Errorf("reset %d: expected a First step, got %v", i,
				step.StepType)
		}
		if step.Number != 0 {
			t.Errorf("reset %d: expected step number 0, got %d", i,
				step.Number)
		}
		if step.Observation.Len() != ObservationDims {
			t.Fatalf("reset %d: expected %d state features, got %d", i,
				ObservationDims, step.Observation.Len())
		}
		for j := 0; j < step.Observation.Len(); j++ {
			if v := step.Observation.AtVec(j); math.Abs(v) > bound {
				t.Errorf("reset %d: state feature %d = %v exceeds "+
					"starting bound %v", i, j, v, bound)
			}
		}
	}
}

func TestBalanceStepLimitCutoff(t *testing.T) {
	const episodeSteps = 10

	starter := fixedStarter{state: []float64{0, 0, 0, 0}}
	task := NewBalance(starter, episodeSteps, FailAngle)
	c, _ := NewDiscrete(task, 0.99)
	c.Reset()

	var step ts.TimeStep
	var last bool
	for i := 0; i < episodeSteps; i++ {
		step, last = c.Step(doNothing())

		// A perfectly balanced pole with no applied force stays
		// upright, so every step is rewarded
		if step.Reward != 1.0 {
			t.Errorf("step %d: expected reward 1.0, got %v", i+1,
				step.Reward)
		}
		if i+1 < episodeSteps && last {
			t.Fatalf("step %d: episode ended before the step limit", i+1)
		}
	}

	if !last {
		t.Fatalf("episode did not end at the step limit")
	}
	if !step.Last() {
		t.Errorf("expected a Last step at the step limit")
	}
	if step.Number != episodeSteps {
		t.Errorf("expected step number %d, got %d", episodeSteps,
			step.Number)
	}
	if step.EndType != ts.Timeout {
		t.Errorf("expected end type %v, got %v", ts.Timeout, step.EndType)
	}
	if step.TerminalEnd() {
		t.Errorf("a step limit cutoff should not be a terminal state")
	}
}

func TestBalanceTerminalAtFailAngle(t *testing.T) {
	// Start with the pole close to the fail angle and falling
	starter := fixedStarter{state: []float64{0, 0, 0.9 * FailAngle, 1.0}}
	task := NewBalance(starter, 500, FailAngle)
	c, _ := NewDiscrete(task, 0.99)
	c.Reset()

	var step ts.TimeStep
	var last bool
	for i := 0; i < 500 && !last; i++ {
		step, last = c.Step(doNothing())
	}

	if !last {
		t.Fatalf("falling pole never ended the episode")
	}
	if !step.TerminalEnd() {
		t.Errorf("expected end type %v, got %v", ts.TerminalStateReached,
			step.EndType)
	}
	if step.Reward != -1.0 {
		t.Errorf("expected reward -1.0 on failure, got %v", step.Reward)
	}
	if step.Number >= 500 {
		t.Errorf("expected the fail angle to end the episode before the "+
			"step limit, episode ended at step %d", step.Number)
	}
	if math.Abs(step.Observation.AtVec(2)) < FailAngle {
		t.Errorf("episode ended with the pole above the fail angle")
	}
}

func TestDiscreteIllegalActionPanics(t *testing.T) {
	starter := fixedStarter{state: []float64{0, 0, 0, 0}}
	task := NewBalance(starter, 500, FailAngle)
	c, _ := NewDiscrete(task, 0.99)
	c.Reset()

	defer func() {
		if recover() == nil {
			t.Errorf("expected an illegal action to panic")
		}
	}()
	c.Step(mat.NewVecDense(1, []float64{3.0}))
}
