// Package rollout implements trajectory buffers for on-policy
// policy-gradient agents.
//
// A Buffer stores the states, actions, rewards, and state-value
// estimates of one update window. Trajectories are closed with
// FinishPath, which runs a return estimator backward over the stored
// rewards, and the whole window is drained with Get once full.
package rollout

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/gopg/utils/matutils"
)

// TargetType describes the return estimator a Buffer runs over each
// finished trajectory
type TargetType string

const (
	// MonteCarlo estimates the return of each state as the full
	// discounted sum of rewards to the end of the trajectory
	// (rewards-to-go), bootstrapping only when a trajectory is cut
	// off before reaching a terminal state.
	MonteCarlo TargetType = "MonteCarlo"

	// NStep estimates the return of each state from the next n
	// rewards plus the discounted value estimate of the state n steps
	// ahead.
	NStep TargetType = "NStep"
)

// Buffer stores the data of a single update window: state
// observations and actions in flat row-major order, along with the
// reward, state-value estimate, return target, and advantage of each
// timestep. A window may span multiple trajectories; each trajectory
// is closed with FinishPath.
type Buffer struct {
	targets TargetType
	n       int // Lookahead for NStep targets

	obsSize    int // Size of state observations
	actionSize int // Number of action dimensions
	maxSize    int // Max buffer size

	currentPos   int // Current position in the buffer
	pathStartIdx int // Position in the buffer where current trajectory starts

	gamma float64 // Discount factor ℽ

	obsBuffer []float64
	actBuffer []float64
	advBuffer []float64
	rewBuffer []float64
	retBuffer []float64
	valBuffer []float64
}

// NewMonteCarlo creates and returns a new Buffer which computes
// Monte-Carlo rewards-to-go targets, the REINFORCE return estimate.
// Advantages are the returns less the stored state-value estimates,
// so the value function acts as a baseline.
func NewMonteCarlo(obsDim, actDim, size int, gamma float64) *Buffer {
	return newBuffer(MonteCarlo, 0, obsDim, actDim, size, gamma)
}

// NewNStep creates and returns a new Buffer which computes n-step
// bootstrapped TD targets. Advantages are the n-step targets less the
// stored state-value estimates.
func NewNStep(n, obsDim, actDim, size int, gamma float64) *Buffer {
	if n < 1 {
		panic(fmt.Sprintf("newNStep: n must be positive \n\thave(%v)", n))
	}
	return newBuffer(NStep, n, obsDim, actDim, size, gamma)
}

func newBuffer(targets TargetType, n, obsDim, actDim, size int,
	gamma float64) *Buffer {
	return &Buffer{
		targets:      targets,
		n:            n,
		obsSize:      obsDim,
		actionSize:   actDim,
		maxSize:      size,
		currentPos:   0,
		pathStartIdx: 0,
		gamma:        gamma,
		obsBuffer:    make([]float64, size*obsDim),
		actBuffer:    make([]float64, size*actDim),
		advBuffer:    make([]float64, size),
		rewBuffer:    make([]float64, size),
		retBuffer:    make([]float64, size),
		valBuffer:    make([]float64, size),
	}
}

// Full returns whether the buffer has stored a full update window
func (b *Buffer) Full() bool {
	return b.currentPos >= b.maxSize
}

// Store stores a single timestep's state, action, reward, and
// state-value estimate to the Buffer.
func (b *Buffer) Store(obs, act []float64, rew, val float64) error {
	if b.currentPos >= b.maxSize {
		return fmt.Errorf("store: cannot add new transition, buffer at " +
			"maximum capacity")
	}
	if len(obs) != b.obsSize {
		return fmt.Errorf("store: illegal obs length \n\twant(%v)\n\thave(%v)",
			b.obsSize, len(obs))
	}
	if len(act) != b.actionSize {
		return fmt.Errorf("store: illegal act length \n\twant(%v)\n\thave(%v)",
			b.actionSize, len(act))
	}

	start := b.currentPos * b.obsSize
	stop := start + b.obsSize
	copy(b.obsBuffer[start:stop], obs)

	start = b.currentPos * b.actionSize
	stop = start + b.actionSize
	copy(b.actBuffer[start:stop], act)

	b.rewBuffer[b.currentPos] = rew
	b.valBuffer[b.currentPos] = val
	b.currentPos++
	return nil
}

// FinishPath computes the return targets and advantage estimates for
// the current trajectory. This should be called at the end of a
// trajectory or when one gets cut off by an update window ending.
//
// The lastVal argument should be 0 if the trajectory ended because the
// agent reached a terminal state, and otherwise it should be v(s), the
// value estimate of the state following the last stored timestep. This
// bootstraps the return computation to account for timesteps beyond
// the episode horizon or window cutoff.
func (b *Buffer) FinishPath(lastVal float64) {
	start := b.pathStartIdx
	stop := b.currentPos

	rews := b.rewBuffer[start:stop]
	vals := b.valBuffer[start:stop]

	var rets []float64
	switch b.targets {
	case MonteCarlo:
		rets = DiscountedReturns(rews, b.gamma, lastVal)
	case NStep:
		rets = NStepReturns(rews, vals, b.gamma, b.n, lastVal)
	default:
		panic(fmt.Sprintf("finishPath: no such target type %v", b.targets))
	}

	copy(b.retBuffer[start:stop], rets)
	for i := start; i < stop; i++ {
		b.advBuffer[i] = b.retBuffer[i] - b.valBuffer[i]
	}

	b.pathStartIdx = b.currentPos
}

// Get returns the observations, actions, advantages, and return
// targets stored in the buffer, resetting the buffer for the next
// update window. Advantages are first standardized to mean 0 and
// standard deviation 1.
func (b *Buffer) Get() ([]float64, []float64, []float64, []float64, error) {
	if b.currentPos != b.maxSize {
		err := fmt.Errorf("get: buffer must be full before sampling")
		return nil, nil, nil, nil, err
	}
	if b.pathStartIdx != b.currentPos {
		err := fmt.Errorf("get: outstanding trajectory, call FinishPath " +
			"before sampling")
		return nil, nil, nil, nil, err
	}

	b.currentPos = 0
	b.pathStartIdx = 0

	// Advantage standardization
	adv := mat.NewVecDense(len(b.advBuffer), b.advBuffer)
	ones := matutils.VecOnes(adv.Len())
	mean := stat.Mean(b.advBuffer, nil)
	std := stat.StdDev(b.advBuffer, nil) + 1e-8
	stdVec := mat.NewVecDense(adv.Len(), nil)
	stdVec.AddScaledVec(stdVec, std, ones)

	adv.AddScaledVec(adv, -mean, ones)
	adv.DivElemVec(adv, stdVec)

	return b.obsBuffer, b.actBuffer, adv.RawVector().Data, b.retBuffer, nil
}

// DiscountedReturns computes the discounted rewards-to-go of a
// trajectory with rewards rews by the backward recurrence
//
//	G_t = r_t + ℽ·G_{t+1}
//
// where G_T = lastVal bootstraps the return beyond the trajectory's
// horizon. The returned slice has the same length as rews.
func DiscountedReturns(rews []float64, gamma, lastVal float64) []float64 {
	rets := make([]float64, len(rews))

	future := lastVal
	for t := len(rews) - 1; t >= 0; t-- {
		rets[t] = rews[t] + gamma*future
		future = rets[t]
	}

	return rets
}

// NStepReturns computes the n-step bootstrapped TD targets of a
// trajectory with rewards rews and state-value estimates vals:
//
//	G_t = Σ_{k<n} ℽ^k·r_{t+k} + ℽ^n·v(s_{t+n})
//
// For timesteps within n steps of the trajectory's end, the sum
// truncates at the horizon and bootstraps from lastVal instead of a
// stored value estimate; lastVal should be 0 for trajectories ending
// in a terminal state. The returned slice has the same length as rews.
func NStepReturns(rews, vals []float64, gamma float64, n int,
	lastVal float64) []float64 {
	if len(rews) != len(vals) {
		panic(fmt.Sprintf("nStepReturns: rewards and values must have "+
			"equal lengths \n\twant(%v)\n\thave(%v)", len(rews), len(vals)))
	}

	T := len(rews)
	rets := make([]float64, T)

	for t := 0; t < T; t++ {
		steps := n
		if t+steps > T {
			steps = T - t
		}

		discount := 1.0
		var ret float64
		for k := 0; k < steps; k++ {
			ret += discount * rews[t+k]
			discount *= gamma
		}

		if t+steps < T {
			ret += discount * vals[t+steps]
		} else {
			ret += discount * lastVal
		}
		rets[t] = ret
	}

	return rets
}
