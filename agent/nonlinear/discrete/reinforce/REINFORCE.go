// Package reinforce implements the REINFORCE algorithm with a learned
// state-value baseline.
//
// The agent acts with a behaviour policy of batch size 1 and learns a
// training policy of batch size equal to the epoch length. Data is
// collected into a rollout buffer for one epoch; the Monte-Carlo
// discounted return of each state is computed at trajectory
// boundaries, and the learned value function is subtracted as a
// baseline to reduce the variance of the gradient estimate. One policy
// gradient step and several value regression steps are performed per
// epoch.
package reinforce

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

// REINFORCE implements the Monte-Carlo policy gradient algorithm with
// a learned baseline. See:
//
// Williams, R. J. (1992). Simple statistical gradient-following
// algorithms for connectionist reinforcement learning.
// https://spinningup.openai.com/en/latest/algorithms/vpg.html
type REINFORCE struct {
	// Policy
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

	// finishingEpisode becomes true when the number of steps recorded
	// equals the total number of steps allowed in the epoch while an
	// episode is in progress. In this case, the agent continues to
	// act in the environment, but no data is stored in the buffer
	// until the episode finishes.
	finishingEpisode        bool
	finishEpisodeOnEpochEnd bool

	prevStep ts.TimeStep

	// State value baseline
	valueFn             network.NeuralNet
	valueFnVM           G.VM
	trainValueFn        network.NeuralNet
	trainValueFnVM      G.VM
	trainValueFnTargets *G.Node
	valueSolver         G.Solver
	valueGradSteps      int
}

// New creates and returns a new REINFORCE agent.
func New(e env.Environment, c agent.Config, seed int64) (*REINFORCE, error) {
	if !c.ValidAgent(&REINFORCE{}) {
		return nil, fmt.Errorf("new: invalid configuration type: %T", c)
	}

	config, ok := c.(config)
	if !ok {
		return nil, fmt.Errorf("new: invalid configuration type: %T", c)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	// Create the rollout buffer with Monte-Carlo return targets
	features := e.ObservationSpec().Shape.Len()
	actionDims := e.ActionSpec().Shape.Len()
	buffer := rollout.NewMonteCarlo(features, actionDims,
		config.epochLength(), config.gamma())

	// Create the prediction value function
	valueFn := config.valueFn()
	valueFnVM := G.NewTapeMachine(valueFn.Graph())

	// Create the training value function with its regression loss
	trainValueFn := config.trainValueFn()

	trainValueFnTargets := G.NewMatrix(
		trainValueFn.Graph(),
		tensor.Float64,
		G.WithShape(trainValueFn.Prediction()[0].Shape()...),
		G.WithName("ValueFnUpdateTarget"),
	)

	valueFnLoss := G.Must(G.Sub(trainValueFn.Prediction()[0],
		trainValueFnTargets))
	valueFnLoss = G.Must(G.Square(valueFnLoss))
	valueFnLoss = G.Must(G.Mean(valueFnLoss))

	if _, err := G.Grad(valueFnLoss,
		trainValueFn.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute value function "+
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

	r := &REINFORCE{
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

		buffer:                  buffer,
		epochLength:             config.epochLength(),
		currentEpochStep:        0,
		completedEpochs:         0,
		eval:                    false,
		finishingEpisode:        false,
		finishEpisodeOnEpochEnd: config.finishEpisodeOnEpochEnd(),
	}

	return r, nil
}

// SelectAction returns an action at the given timestep
func (r *REINFORCE) SelectAction(t ts.TimeStep) *mat.VecDense {
	if t != r.prevStep {
		panic("selectAction: timestep is different from that previously " +
			"recorded")
	}
	return r.behaviour.SelectAction(t)
}

// ObserveFirst observes and records information about the first
// timestep in an episode
func (r *REINFORCE) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (current timestep = %d)\n",
			t.Number)
	}
	r.prevStep = t
	return nil
}

// Observe observes and records any timestep other than the first
// timestep, storing it in the rollout buffer and closing the current
// trajectory when the episode or epoch ends.
func (r *REINFORCE) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	// Episodes run after the epoch has filled are discarded
	if r.finishingEpisode {
		r.prevStep = nextStep
		return nil
	}

	// Estimate the value of the previous step's state
	o := r.prevStep.Observation.(*mat.VecDense).RawVector().Data
	val, err := r.stateValue(o)
	if err != nil {
		return fmt.Errorf("observe: %v", err)
	}

	a := action.(*mat.VecDense).RawVector().Data
	err = r.buffer.Store(o, a, nextStep.Reward, val)
	if err != nil {
		return fmt.Errorf("observe: %v", err)
	}

	r.prevStep = nextStep
	o = nextStep.Observation.(*mat.VecDense).RawVector().Data

	r.currentEpochStep++
	terminal := nextStep.Last() || r.currentEpochStep == r.epochLength
	if terminal {
		if nextStep.TerminalEnd() {
			r.buffer.FinishPath(0.0)
		} else {
			// Cutoff: bootstrap the return from the value of the
			// state the episode was cut off at
			lastVal, err := r.stateValue(o)
			if err != nil {
				return fmt.Errorf("observe: %v", err)
			}
			r.buffer.FinishPath(lastVal)
			r.finishingEpisode = r.currentEpochStep == r.epochLength &&
				r.finishEpisodeOnEpochEnd && !nextStep.Last()
		}
	}
	return nil
}

// stateValue returns the baseline's value estimate of a single state
// observation
func (r *REINFORCE) stateValue(obs []float64) (float64, error) {
	if err := r.valueFn.SetInput(obs); err != nil {
		return 0, fmt.Errorf("could not set value function input: %v", err)
	}
	if err := r.valueFnVM.RunAll(); err != nil {
		return 0, fmt.Errorf("could not run value function: %v", err)
	}
	val := r.valueFn.Output()[0].Data().([]float64)
	r.valueFnVM.Reset()

	if len(val) != 1 {
		return 0, fmt.Errorf("multiple values predicted for a single state")
	}
	return val[0], nil
}

// Step updates the agent, performing one policy gradient step and
// valueGradSteps regression steps on the baseline once a full epoch
// of data has been collected. If the agent is in evaluation mode or
// the epoch is not yet finished, this function simply returns.
func (r *REINFORCE) Step() error {
	if r.currentEpochStep < r.epochLength || r.eval {
		return nil
	}

	obs, act, adv, ret, err := r.buffer.Get()
	if err != nil {
		return fmt.Errorf("step: %v", err)
	}

	// Policy gradient step
	advantagesTensor := tensor.NewDense(
		tensor.Float64,
		r.advantages.Shape(),
		tensor.WithBacking(adv),
	)
	if err := G.Let(r.advantages, advantagesTensor); err != nil {
		return fmt.Errorf("step: could not set advantages: %v", err)
	}
	if _, err := r.trainPolicy.LogPdfOf(obs, act); err != nil {
		return fmt.Errorf("step: %v", err)
	}
	if err := r.trainPolicyVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run policy update: %v", err)
	}
	err = r.trainPolicySolver.Step(r.trainPolicy.Network().Model())
	if err != nil {
		return fmt.Errorf("step: could not step policy solver: %v", err)
	}
	r.trainPolicyVM.Reset()

	// Baseline regression toward the Monte-Carlo returns of the
	// stored states
	if err := r.trainValueFn.SetInput(obs); err != nil {
		return fmt.Errorf("step: could not set value function input: %v",
			err)
	}
	targetsTensor := tensor.NewDense(
		tensor.Float64,
		r.trainValueFnTargets.Shape(),
		tensor.WithBacking(ret),
	)
	for i := 0; i < r.valueGradSteps; i++ {
		if err := G.Let(r.trainValueFnTargets, targetsTensor); err != nil {
			return fmt.Errorf("step: could not set value targets: %v", err)
		}
		if err := r.trainValueFnVM.RunAll(); err != nil {
			return fmt.Errorf("step: could not run value update: %v", err)
		}
		if err := r.valueSolver.Step(r.trainValueFn.Model()); err != nil {
			return fmt.Errorf("step: could not step value solver: %v", err)
		}
		r.trainValueFnVM.Reset()
	}

	// Update behaviour policy and prediction value function
	if err := network.Set(r.behaviour.Network(),
		r.trainPolicy.Network()); err != nil {
		return fmt.Errorf("step: could not update behaviour policy: %v", err)
	}
	if err := network.Set(r.valueFn, r.trainValueFn); err != nil {
		return fmt.Errorf("step: could not update value function: %v", err)
	}
	r.completedEpochs++
	r.currentEpochStep = 0

	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (r *REINFORCE) EndEpisode() {
	// If the previous epoch filled before the episode finished, the
	// remainder of that episode was discarded. A new episode is
	// starting now, so data storage can resume.
	r.finishingEpisode = false
}

// Eval sets the algorithm into evaluation mode
func (r *REINFORCE) Eval() {
	r.eval = true
	r.behaviour.Eval()
}

// Train sets the algorithm into training mode
func (r *REINFORCE) Train() {
	r.eval = false
	r.behaviour.Train()
}

// IsEval returns whether the algorithm is in evaluation mode
func (r *REINFORCE) IsEval() bool { return r.eval }

// CompletedEpochs returns the number of epochs the agent has been
// updated on
func (r *REINFORCE) CompletedEpochs() int { return r.completedEpochs }

// Close cleans up any resources the agent holds
func (r *REINFORCE) Close() error {
	if err := r.trainPolicyVM.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	if err := r.valueFnVM.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	if err := r.trainValueFnVM.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	return r.behaviour.Close()
}
