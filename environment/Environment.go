// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"
	ts "github.com/samuelfneumann/gopg/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines when an episode ends. Enders modify a TimeStep
// in-place, setting its StepType to timestep.Last and recording how
// the episode ended.
type Ender interface {
	// End takes the most recent TimeStep in the environment and
	// returns whether it ends the episode, adjusting the TimeStep's
	// StepType and EndType as needed
	End(*ts.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some
// environment. A Task also determines the starting states of an
// environment and when an episode ends.
type Task interface {
	Starter
	Ender

	// GetReward returns the reward for taking an action in some state,
	// resulting in a transition to nextState
	GetReward(state, action, nextState mat.Vector) float64

	// AtGoal returns whether the argument state is a goal state
	AtGoal(state mat.Matrix) bool

	// Min and Max return the minimum and maximum possible rewards
	Min() float64
	Max() float64

	RewardSpec() Spec
}

// Environment implements a simulated environment, which includes a
// Task to complete. Environments are stepped with 1-dimensional
// discrete actions held in a *mat.VecDense.
type Environment interface {
	Task

	// Reset resets the environment between episodes, returning the
	// first timestep of the new episode
	Reset() ts.TimeStep

	// Step takes one environmental step given an action, returning
	// the next timestep and whether it is the last in the episode
	Step(action *mat.VecDense) (ts.TimeStep, bool)

	// CurrentTimeStep returns the last timestep of the environment
	CurrentTimeStep() ts.TimeStep

	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}
