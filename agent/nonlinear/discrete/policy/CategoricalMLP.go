// Package policy implements neural network policies over discrete
// action spaces
package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/agent"
	env "github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/network"
	ts "github.com/samuelfneumann/gopg/timestep"
	"github.com/samuelfneumann/gopg/utils/floatutils"
)

// CategoricalMLP implements a softmax policy over discrete actions,
// parameterized by a multi-layered perceptron. The network has one
// output per action, the logit of that action. Action probabilities
// are computed through the softmax function.
//
// In training mode, actions are sampled from the softmax
// distribution. In evaluation mode, the highest-logit action is
// selected, with ties broken randomly.
//
// CategoricalMLP implements the agent.LogPdfOfer interface: the log
// probability of externally inputted state-action batches is computed
// on the network's graph so that a policy-gradient loss can be
// differentiated through it.
type CategoricalMLP struct {
	net network.NeuralNet
	vm  G.VM

	logits     *G.Node
	logitsVals G.Value

	// Log probability of actions inputted with LogPdfOf
	actionIndices *G.Node
	logPdf        *G.Node
	logPdfVal     G.Value

	batchForLogPdf int
	numActions     int

	eval bool
	rng  *rand.Rand
}

// NewCategoricalMLP returns a new CategoricalMLP policy for the
// argument environment. The batchForLogPdf parameter determines the
// batch size of state-action pairs for which LogPdfOf computes log
// probabilities. If batchForLogPdf is 1, the policy can also select
// actions with SelectAction.
func NewCategoricalMLP(e env.Environment, batchForLogPdf int,
	g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*network.Activation, init G.InitWFn,
	seed int64) (agent.LogPdfOfer, error) {
	if e.ActionSpec().Cardinality == env.Continuous {
		err := fmt.Errorf("newCategoricalMLP: softmax policy cannot be " +
			"used with continuous actions")
		return &CategoricalMLP{}, err
	}

	features := e.ObservationSpec().Shape.Len()
	numActions := int(e.ActionSpec().UpperBound.AtVec(0)) + 1

	net, err := network.NewMultiHeadMLP(features, batchForLogPdf, numActions,
		g, hiddenSizes, biases, init, activations)
	if err != nil {
		return &CategoricalMLP{}, fmt.Errorf("newCategoricalMLP: could "+
			"not create policy network: %v", err)
	}

	logits := net.Prediction()[0]

	// One-hot action indices selecting which logit's log probability
	// is computed per batch row
	actionIndices := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
		G.WithName("ActionIndices"),
	)

	// log π(a|s) = logit(a, s) - logsumexp of all logits in s
	selectedLogits := G.Must(G.HadamardProd(actionIndices, logits))
	selectedLogits = G.Must(G.Sum(selectedLogits, 1))
	logPdf := G.Must(G.Sub(selectedLogits, logSumExp(logits, 1)))

	source := rand.NewSource(uint64(seed))
	rng := rand.New(source)

	pol := &CategoricalMLP{
		net:            net,
		logits:         logits,
		actionIndices:  actionIndices,
		logPdf:         logPdf,
		batchForLogPdf: batchForLogPdf,
		numActions:     numActions,
		eval:           false,
		rng:            rng,
	}
	G.Read(pol.logits, &pol.logitsVals)
	G.Read(pol.logPdf, &pol.logPdfVal)

	// Only a policy of batch size 1 selects actions, so only then is
	// a VM needed
	if batchForLogPdf == 1 {
		pol.vm = G.NewTapeMachine(net.Graph())
	}

	return pol, nil
}

// logSumExp computes the numerically stable log of the sum of the
// exponentials of logits along the argument axis
func logSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// SelectAction runs the policy network on the timestep's observation
// and selects an action. In training mode, the action is sampled from
// the softmax distribution over the network's logits; in evaluation
// mode, the highest-logit action is returned with ties broken
// randomly.
func (c *CategoricalMLP) SelectAction(t ts.TimeStep) *mat.VecDense {
	if c.vm == nil {
		panic("selectAction: cannot select an action with a policy of " +
			"batch size > 1")
	}

	obs := t.Observation.(*mat.VecDense).RawVector().Data
	if err := c.net.SetInput(obs); err != nil {
		panic(fmt.Sprintf("selectAction: could not set input: %v", err))
	}

	if err := c.vm.RunAll(); err != nil {
		panic(fmt.Sprintf("selectAction: could not run policy: %v", err))
	}
	logits := c.logitsVals.Data().([]float64)
	c.vm.Reset()

	var action int
	if c.eval {
		greedy := floatutils.ArgMax(logits...)
		action = greedy[c.rng.Intn(len(greedy))]
	} else {
		action = c.sample(logits)
	}

	return mat.NewVecDense(1, []float64{float64(action)})
}

// sample draws an action from the softmax distribution over the
// argument logits
func (c *CategoricalMLP) sample(logits []float64) int {
	// Subtract the max logit for numerical stability
	max := floatutils.Max(logits...)

	var total float64
	probs := make([]float64, len(logits))
	for i, logit := range logits {
		probs[i] = math.Exp(logit - max)
		total += probs[i]
	}

	u := c.rng.Float64() * total
	var cumulative float64
	for i, p := range probs {
		cumulative += p
		if u < cumulative {
			return i
		}
	}
	return len(logits) - 1
}

// LogPdfOf sets the log probability of taking the argument actions in
// the argument states as the value computed by LogPdfNode. The states
// should be constructed in row major order, and actions should hold
// one discrete action per state.
func (c *CategoricalMLP) LogPdfOf(states, actions []float64) (*G.Node,
	error) {
	if len(actions) != c.batchForLogPdf {
		return nil, fmt.Errorf("logPdfOf: invalid number of actions"+
			"\n\twant(%v)\n\thave(%v)", c.batchForLogPdf, len(actions))
	}

	if err := c.net.SetInput(states); err != nil {
		return nil, fmt.Errorf("logPdfOf: could not set input: %v", err)
	}

	// One-hot encode the actions
	actionIndices := make([]float64, 0, c.numActions*c.batchForLogPdf)
	for i := range actions {
		row := make([]float64, c.numActions)
		row[int(actions[i])] = 1.0
		actionIndices = append(actionIndices, row...)
	}
	actionIndicesTensor := tensor.NewDense(
		tensor.Float64,
		[]int{c.batchForLogPdf, c.numActions},
		tensor.WithBacking(actionIndices),
	)
	if err := G.Let(c.actionIndices, actionIndicesTensor); err != nil {
		return nil, fmt.Errorf("logPdfOf: could not set action "+
			"indices: %v", err)
	}

	return c.logPdf, nil
}

// LogPdfNode returns the node that computes the log probability of
// actions inputted with LogPdfOf
func (c *CategoricalMLP) LogPdfNode() *G.Node {
	return c.logPdf
}

// LogPdfVal returns the value of the node returned by LogPdfNode
func (c *CategoricalMLP) LogPdfVal() G.Value {
	return c.logPdfVal
}

// Network returns the network of the CategoricalMLP
func (c *CategoricalMLP) Network() network.NeuralNet {
	return c.net
}

// Eval sets the policy to evaluation mode
func (c *CategoricalMLP) Eval() { c.eval = true }

// Train sets the policy to training mode
func (c *CategoricalMLP) Train() { c.eval = false }

// IsEval returns whether the policy is in evaluation mode
func (c *CategoricalMLP) IsEval() bool { return c.eval }

// Close cleans up the policy's resources
func (c *CategoricalMLP) Close() error {
	if c.vm != nil {
		return c.vm.Close()
	}
	return nil
}
