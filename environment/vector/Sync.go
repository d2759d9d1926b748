// Package vector provides batched stepping over collections of
// environments.
package vector

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/gopg/environment"
	ts "github.com/samuelfneumann/gopg/timestep"
)

// Sync steps a fixed collection of environments in lockstep. Each call
// to Step advances every environment by one timestep, running the
// environments concurrently but returning only once all have finished.
// Results are always ordered by environment index.
type Sync struct {
	envs []env.Environment
}

// NewSync creates a batched stepper over the argument environments.
// All environments should have the same observation and action specs.
func NewSync(envs []env.Environment) (*Sync, error) {
	if len(envs) == 0 {
		return nil, fmt.Errorf("newSync: no environments given")
	}

	obsDims := envs[0].ObservationSpec().Shape.Len()
	actionDims := envs[0].ActionSpec().Shape.Len()
	for i := 1; i < len(envs); i++ {
		if envs[i].ObservationSpec().Shape.Len() != obsDims {
			return nil, fmt.Errorf("newSync: environment %d has "+
				"observation dimensions %d, expected %d", i,
				envs[i].ObservationSpec().Shape.Len(), obsDims)
		}
		if envs[i].ActionSpec().Shape.Len() != actionDims {
			return nil, fmt.Errorf("newSync: environment %d has "+
				"action dimensions %d, expected %d", i,
				envs[i].ActionSpec().Shape.Len(), actionDims)
		}
	}

	return &Sync{envs: envs}, nil
}

// Len returns the number of environments stepped by the Sync
func (s *Sync) Len() int { return len(s.envs) }

// Reset resets every environment and returns the starting timestep of
// each, ordered by environment index.
func (s *Sync) Reset() []ts.TimeStep {
	steps := make([]ts.TimeStep, len(s.envs))

	var wg sync.WaitGroup
	for i, e := range s.envs {
		wg.Add(1)
		go func(i int, e env.Environment) {
			defer wg.Done()
			steps[i] = e.Reset()
		}(i, e)
	}
	wg.Wait()

	return steps
}

// Step advances every environment by one timestep with its
// corresponding action. The returned slices are ordered by environment
// index. The boolean slice denotes which environments finished their
// episode on this step; finished environments are not reset.
func (s *Sync) Step(actions []*mat.VecDense) ([]ts.TimeStep, []bool,
	error) {
	if len(actions) != len(s.envs) {
		return nil, nil, fmt.Errorf("step: got %d actions for %d "+
			"environments", len(actions), len(s.envs))
	}

	steps := make([]ts.TimeStep, len(s.envs))
	last := make([]bool, len(s.envs))

	var wg sync.WaitGroup
	for i, e := range s.envs {
		wg.Add(1)
		go func(i int, e env.Environment) {
			defer wg.Done()
			steps[i], last[i] = e.Step(actions[i])
		}(i, e)
	}
	wg.Wait()

	return steps, last, nil
}
