package reinforce

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/gopg/agent"
	"github.com/samuelfneumann/gopg/agent/nonlinear/discrete/policy"
	env "github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/initwfn"
	"github.com/samuelfneumann/gopg/network"
	"github.com/samuelfneumann/gopg/solver"
)

// CategoricalMLPConfig implements a configuration for a REINFORCE
// agent with a categorical policy. The categorical distribution is
// parameterized by a neural network with N outputs, one for each
// action in the environment. The network outputs the logit of each
// action, and action probabilities are computed through the softmax
// function.
type CategoricalMLPConfig struct {
	// Policy neural net
	policy            agent.LogPdfOfer // REINFORCE.trainPolicy
	behaviour         agent.NNPolicy   // REINFORCE.behaviour
	PolicyLayers      []int
	PolicyBiases      []bool
	PolicyActivations []*network.Activation

	// State value function (baseline) neural net
	vValueFn           network.NeuralNet
	vTrainValueFn      network.NeuralNet
	ValueFnLayers      []int
	ValueFnBiases      []bool
	ValueFnActivations []*network.Activation

	// Weight init function for all neural nets
	InitWFn *initwfn.InitWFn

	PolicySolver *solver.Solver
	VSolver      *solver.Solver

	// Number of gradient steps to take for the value function per
	// epoch
	ValueGradSteps int
	EpochLength    int

	// FinishEpisodeOnEpochEnd denotes if the current episode should
	// be finished (with its data discarded) before starting a new
	// epoch
	FinishEpisodeOnEpochEnd bool

	// Discount factor for the Monte-Carlo return computation
	Gamma float64
}

// Validate checks a Config to ensure it is a valid configuration
func (c CategoricalMLPConfig) Validate() error {
	if c.EpochLength <= 0 {
		return fmt.Errorf("cannot have epoch length < 1")
	}
	if c.ValueGradSteps <= 0 {
		return fmt.Errorf("cannot have value gradient steps < 1")
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("discount factor must be in [0, 1]")
	}

	return nil
}

// ValidAgent returns whether the input agent is valid for this config
func (c CategoricalMLPConfig) ValidAgent(a agent.Agent) bool {
	switch a.(type) {
	case *REINFORCE:
		return true
	}
	return false
}

// CreateAgent creates and returns the agent determined by the
// configuration
func (c CategoricalMLPConfig) CreateAgent(e env.Environment,
	seed uint64) (agent.Agent, error) {
	behaviour, err := policy.NewCategoricalMLP(
		e,
		1,
		G.NewGraph(),
		c.PolicyLayers,
		c.PolicyBiases,
		c.PolicyActivations,
		c.InitWFn.InitWFn(),
		int64(seed),
	)
	if err != nil {
		return nil, fmt.Errorf("createAgent: could not create "+
			"behaviour policy: %v", err)
	}

	p, err := policy.NewCategoricalMLP(
		e,
		c.EpochLength,
		G.NewGraph(),
		c.PolicyLayers,
		c.PolicyBiases,
		c.PolicyActivations,
		c.InitWFn.InitWFn(),
		int64(seed),
	)
	if err != nil {
		return nil, fmt.Errorf("createAgent: could not create policy: %v",
			err)
	}

	features := e.ObservationSpec().Shape.Len()

	valueFn, err := network.NewSingleHeadMLP(
		features,
		1,
		G.NewGraph(),
		c.ValueFnLayers,
		c.ValueFnBiases,
		c.InitWFn.InitWFn(),
		c.ValueFnActivations,
	)
	if err != nil {
		return nil, fmt.Errorf("createAgent: could not create value "+
			"function: %v", err)
	}

	trainValueFn, err := network.NewSingleHeadMLP(
		features,
		c.EpochLength,
		G.NewGraph(),
		c.ValueFnLayers,
		c.ValueFnBiases,
		c.InitWFn.InitWFn(),
		c.ValueFnActivations,
	)
	if err != nil {
		return nil, fmt.Errorf("createAgent: could not create train "+
			"value function: %v", err)
	}

	// The behaviour policy and prediction value function share
	// weights with their training counterparts
	if err := network.Set(behaviour.Network(), p.Network()); err != nil {
		return nil, fmt.Errorf("createAgent: could not sync policy "+
			"weights: %v", err)
	}
	if err := network.Set(valueFn, trainValueFn); err != nil {
		return nil, fmt.Errorf("createAgent: could not sync value "+
			"function weights: %v", err)
	}

	c.policy = p
	c.behaviour = behaviour
	c.vValueFn = valueFn
	c.vTrainValueFn = trainValueFn

	return New(e, c, int64(seed))
}

// Below implemented to satisfy the reinforce.config interface

func (c CategoricalMLPConfig) trainPolicy() agent.LogPdfOfer {
	return c.policy
}

func (c CategoricalMLPConfig) behaviourPolicy() agent.NNPolicy {
	return c.behaviour
}

func (c CategoricalMLPConfig) valueFn() network.NeuralNet {
	return c.vValueFn
}

func (c CategoricalMLPConfig) trainValueFn() network.NeuralNet {
	return c.vTrainValueFn
}

func (c CategoricalMLPConfig) initWFn() *initwfn.InitWFn {
	return c.InitWFn
}

func (c CategoricalMLPConfig) policySolver() *solver.Solver {
	return c.PolicySolver
}

func (c CategoricalMLPConfig) vSolver() *solver.Solver {
	return c.VSolver
}

func (c CategoricalMLPConfig) epochLength() int {
	return c.EpochLength
}

func (c CategoricalMLPConfig) valueGradSteps() int {
	return c.ValueGradSteps
}

func (c CategoricalMLPConfig) finishEpisodeOnEpochEnd() bool {
	return c.FinishEpisodeOnEpochEnd
}

func (c CategoricalMLPConfig) gamma() float64 {
	return c.Gamma
}
