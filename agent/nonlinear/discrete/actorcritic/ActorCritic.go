// Package actorcritic implements an n-step Actor-Critic algorithm.
//
// The agent acts with a behaviour policy of batch size 1 and learns a
// training policy of batch size equal to the epoch length. Data is
// collected into a rollout buffer for one epoch; the return of each
// state is estimated by the n-step truncated return, bootstrapping
// from the critic's value estimate n steps ahead. The critic is
// regressed toward the n-step targets, and the actor takes a policy
// gradient step on the bootstrapped advantages. Unlike a Monte-Carlo
// agent, epochs may end mid-episode and the next epoch continues from
// the following timestep.
package actorcritic

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/agent"
	"github.com/samuelfneumann/gopg/buffer/rollout"
	env "github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/network"
	ts "github.com/samuelfneumann/gopg/timestep"
)

// ActorCritic implements the episodic n-step Actor-Critic algorithm.
// See:
//
// Sutton, R. S., Barto, A. G. (2018). Reinforcement Learning:
// An Introduction, chapter 13.
type ActorCritic struct {
	// Actor
	behaviour         agent.NNPolicy   // Has its own VM
	trainPolicy       agent.LogPdfOfer // Policy struct that is learned
	trainPolicySolver G.Solver
	trainPolicyVM     G.VM
	advantages        *G.Node // For gradient construction

	buffer           *rollout.Buffer
	epochLength      int
	currentEpochStep int
	completedEpochs  int
	eval             bool

	prevStep ts.TimeStep

	// Critic
	valueFn             network.NeuralNet
	valueFnVM           G.VM
	trainValueFn        network.NeuralNet
	trainValueFnVM      G.VM
	trainValueFnTargets *G.Node
	valueSolver         G.Solver
	valueGradSteps      int
}

// New creates and returns a new ActorCritic agent.
func New(e env.Environment, c agent.Config, seed int64) (*ActorCritic,
	error) {
	if !c.ValidAgent(&ActorCritic{}) {
		return nil, fmt.Errorf("new: invalid configuration type: %T", c)
	}

	config, ok := c.(config)
	if !ok {
		return nil, fmt.Errorf("new: invalid configuration type: %T", c)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	// Create the rollout buffer with n-step return targets
	features := e.ObservationSpec().Shape.Len()
	actionDims := e.ActionSpec().Shape.Len()
	buffer := rollout.NewNStep(config.n(), features, actionDims,
		config.epochLength(), config.gamma())

	// Create the prediction critic
	valueFn := config.valueFn()
	valueFnVM := G.NewTapeMachine(valueFn.Graph())

	// Create the training critic with its regression loss
	trainValueFn := config.trainValueFn()

	trainValueFnTargets := G.NewMatrix(
		trainValueFn.Graph(),
		tensor.Float64,
		G.WithShape(trainValueFn.Prediction()[0].Shape()...),
		G.WithName("CriticUpdateTarget"),
	)

	valueFnLoss := G.Must(G.Sub(trainValueFn.Prediction()[0],
		trainValueFnTargets))
	valueFnLoss = G.Must(G.Square(valueFnLoss))
	valueFnLoss = G.Must(G.Mean(valueFnLoss))

	if _, err := G.Grad(valueFnLoss,
		trainValueFn.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute critic "+
			"gradient: %v", err)
	}
	trainValueFnVM := G.NewTapeMachine(trainValueFn.Graph(),
		G.BindDualValues(trainValueFn.Learnables()...))

	// Create the prediction and training policies with the policy
	// gradient loss -E[log π(a|s)·A(s, a)]
	behaviour := config.behaviourPolicy()
	trainPolicy := config.trainPolicy()

	logProb := trainPolicy.LogPdfNode()
	advantages := G.NewVector(
		trainPolicy.Network().Graph(),
		tensor.Float64,
		G.WithName("Advantages"),
		G.WithShape(config.epochLength()),
	)

	policyLoss := G.Must(G.HadamardProd(logProb, advantages))
	policyLoss = G.Must(G.Mean(policyLoss))
	policyLoss = G.Must(G.Neg(policyLoss))

	if _, err := G.Grad(policyLoss,
		trainPolicy.Network().Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute policy "+
			"gradient: %v", err)
	}
	trainPolicyVM := G.NewTapeMachine(trainPolicy.Network().Graph(),
		G.BindDualValues(trainPolicy.Network().Learnables()...))

	a := &ActorCritic{
		behaviour:         behaviour,
		trainPolicy:       trainPolicy,
		trainPolicyVM:     trainPolicyVM,
		trainPolicySolver: config.policySolver(),
		advantages:        advantages,

		valueFn:   valueFn,
		valueFnVM: valueFnVM,

		trainValueFn:        trainValueFn,
		trainValueFnTargets: trainValueFnTargets,
		trainValueFnVM:      trainValueFnVM,
		valueSolver:         config.vSolver(),
		valueGradSteps:      config.valueGradSteps(),

		buffer:           buffer,
		epochLength:      config.epochLength(),
		currentEpochStep: 0,
		completedEpochs:  0,
		eval:             false,
	}

	return a, nil
}

// SelectAction returns an action at the given timestep
func (a *ActorCritic) SelectAction(t ts.TimeStep) *mat.VecDense {
	if t != a.prevStep {
		panic("selectAction: timestep is different from that previously " +
			"recorded")
	}
	return a.behaviour.SelectAction(t)
}

// ObserveFirst observes and records information about the first
// timestep in an episode
func (a *ActorCritic) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (current timestep = %d)\n",
			t.Number)
	}
	a.prevStep = t
	return nil
}

// Observe observes and records any timestep other than the first
// timestep, storing it in the rollout buffer and closing the current
// trajectory when the episode or epoch ends.
func (a *ActorCritic) Observe(action mat.Vector,
	nextStep ts.TimeStep) error {
	// Estimate the value of the previous step's state
	o := a.prevStep.Observation.(*mat.VecDense).RawVector().Data
	val, err := a.stateValue(o)
	if err != nil {
		return fmt.Errorf("observe: %v", err)
	}

	act := action.(*mat.VecDense).RawVector().Data
	err = a.buffer.Store(o, act, nextStep.Reward, val)
	if err != nil {
		return fmt.Errorf("observe: %v", err)
	}

	a.prevStep = nextStep
	o = nextStep.Observation.(*mat.VecDense).RawVector().Data

	a.currentEpochStep++
	terminal := nextStep.Last() || a.currentEpochStep == a.epochLength
	if terminal {
		if nextStep.TerminalEnd() {
			a.buffer.FinishPath(0.0)
		} else {
			// Cutoff: bootstrap the return from the value of the
			// state the trajectory was cut off at. This includes
			// epochs ending mid-episode, since the next epoch picks
			// up from the following timestep.
			lastVal, err := a.stateValue(o)
			if err != nil {
				return fmt.Errorf("observe: %v", err)
			}
			a.buffer.FinishPath(lastVal)
		}
	}
	return nil
}

// stateValue returns the critic's value estimate of a single state
// observation
func (a *ActorCritic) stateValue(obs []float64) (float64, error) {
	if err := a.valueFn.SetInput(obs); err != nil {
		return 0, fmt.Errorf("could not set critic input: %v", err)
	}
	if err := a.valueFnVM.RunAll(); err != nil {
		return 0, fmt.Errorf("could not run critic: %v", err)
	}
	val := a.valueFn.Output()[0].Data().([]float64)
	a.valueFnVM.Reset()

	if len(val) != 1 {
		return 0, fmt.Errorf("multiple values predicted for a single state")
	}
	return val[0], nil
}

// Step updates the agent, performing one policy gradient step and
// valueGradSteps regression steps on the critic once a full epoch of
// data has been collected. If the agent is in evaluation mode or the
// epoch is not yet finished, this function simply returns.
func (a *ActorCritic) Step() error {
	if a.currentEpochStep < a.epochLength || a.eval {
		return nil
	}

	obs, act, adv, ret, err := a.buffer.Get()
	if err != nil {
		return fmt.Errorf("step: %v", err)
	}

	// Policy gradient step on the bootstrapped advantages
	advantagesTensor := tensor.NewDense(
		tensor.Float64,
		a.advantages.Shape(),
		tensor.WithBacking(adv),
	)
	if err := G.Let(a.advantages, advantagesTensor); err != nil {
		return fmt.Errorf("step: could not set advantages: %v", err)
	}
	if _, err := a.trainPolicy.LogPdfOf(obs, act); err != nil {
		return fmt.Errorf("step: %v", err)
	}
	if err := a.trainPolicyVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run policy update: %v", err)
	}
	err = a.trainPolicySolver.Step(a.trainPolicy.Network().Model())
	if err != nil {
		return fmt.Errorf("step: could not step policy solver: %v", err)
	}
	a.trainPolicyVM.Reset()

	// Critic regression toward the n-step returns of the stored
	// states
	if err := a.trainValueFn.SetInput(obs); err != nil {
		return fmt.Errorf("step: could not set critic input: %v", err)
	}
	targetsTensor := tensor.NewDense(
		tensor.Float64,
		a.trainValueFnTargets.Shape(),
		tensor.WithBacking(ret),
	)
	for i := 0; i < a.valueGradSteps; i++ {
		if err := G.Let(a.trainValueFnTargets, targetsTensor); err != nil {
			return fmt.Errorf("step: could not set critic targets: %v", err)
		}
		if err := a.trainValueFnVM.RunAll(); err != nil {
			return fmt.Errorf("step: could not run critic update: %v", err)
		}
		if err := a.valueSolver.Step(a.trainValueFn.Model()); err != nil {
			return fmt.Errorf("step: could not step critic solver: %v", err)
		}
		a.trainValueFnVM.Reset()
	}

	// Update behaviour policy and prediction critic
	if err := network.Set(a.behaviour.Network(),
		a.trainPolicy.Network()); err != nil {
		return fmt.Errorf("step: could not update behaviour policy: %v", err)
	}
	if err := network.Set(a.valueFn, a.trainValueFn); err != nil {
		return fmt.Errorf("step: could not update critic: %v", err)
	}
	a.completedEpochs++
	a.currentEpochStep = 0

	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (a *ActorCritic) EndEpisode() {}

// Eval sets the algorithm into evaluation mode
func (a *ActorCritic) Eval() {
	a.eval = true
	a.behaviour.Eval()
}

// Train sets the algorithm into training mode
func (a *ActorCritic) Train() {
	a.eval = false
	a.behaviour.Train()
}

// IsEval returns whether the algorithm is in evaluation mode
func (a *ActorCritic) IsEval() bool { return a.eval }

// CompletedEpochs returns the number of epochs the agent has been
// updated on
func (a *ActorCritic) CompletedEpochs() int { return a.completedEpochs }

// Close cleans up any resources the agent holds
func (a *ActorCritic) Close() error {
	if err := a.trainPolicyVM.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	if err := a.valueFnVM.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	if err := a.trainValueFnVM.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	return a.behaviour.Close()
}
