package actorcritic

import (
	"github.com/samuelfneumann/gopg/agent"
	"github.com/samuelfneumann/gopg/initwfn"
	"github.com/samuelfneumann/gopg/network"
	"github.com/samuelfneumann/gopg/solver"
)

// config implements an interface for any ActorCritic configuration.
// This is needed so that the ActorCritic constructor can take in any
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

	// Number of gradient steps to take for the critic per epoch
	valueGradSteps() int

	// Lookahead of the n-step TD return targets
	n() int

	gamma() float64
}
