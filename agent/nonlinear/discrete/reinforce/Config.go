package reinforce

import (
	"github.com/samuelfneumann/gopg/agent"
	"github.com/samuelfneumann/gopg/initwfn"
	"github.com/samuelfneumann/gopg/network"
	"github.com/samuelfneumann/gopg/solver"
)

// config implements an interface for any REINFORCE configuration.
// This is needed so that the REINFORCE constructor can take in any
// configuration that provides the required policy parameterization.
type config interface {
	agent.Config

	trainPolicy() agent.LogPdfOfer
	behaviourPolicy() agent.NNPolicy

	valueFn() network.NeuralNet
	trainValueFn() network.NeuralNet

	initWFn() *initwfn.InitWFn

	policySolver() *solver.Solver
	vSolver() *solver.Solver

	epochLength() int

	// Number of gradient steps to take for the value function per
	// epoch
	valueGradSteps() int

	// finishEpisodeOnEpochEnd denotes if the current episode should
	// be finished before starting a new epoch. If true, then the
	// agent is updated when the current epoch ends, then the current
	// episode is finished (with its data discarded), then the next
	// epoch starts. If false, the agent is updated when the current
	// epoch is finished, and the next epoch starts at the next
	// timestep, which may be in the middle of an episode.
	finishEpisodeOnEpochEnd() bool

	gamma() float64
}
