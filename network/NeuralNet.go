// Package network implements feed-forward neural networks on top of
// Gorgonia computational graphs
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet implements a neural network on a Gorgonia computational
// graph. A NeuralNet holds an input node of a fixed batch size. After
// setting the input with SetInput and running a VM on the network's
// graph, the predictions of the network are available through
// Output().
//
// Networks may have more than one output layer, e.g. one layer
// predicting action logits and another predicting a state value. The
// Prediction and Output methods return one element per output layer.
type NeuralNet interface {
	// Graph returns the computational graph of the network
	Graph() *G.ExprGraph

	// BatchSize returns the number of rows of the network's input node
	BatchSize() int

	// Features returns the number of features in a single input
	// observation vector
	Features() int

	// Outputs returns the number of output predictions per output
	// layer
	Outputs() int

	// SetInput sets the value of the input node before running the
	// forward pass. Inputs are constructed in row major order.
	SetInput([]float64) error

	// Set sets the weights of the network to those of another network
	Set(NeuralNet) error

	// Learnables returns the nodes of the network which can be learned
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients
	Model() []G.ValueGrad

	// Prediction returns the prediction node of each output layer
	Prediction() []*G.Node

	// Output returns the value of the prediction node of each output
	// layer after a VM has run the network's graph
	Output() []G.Value
}

// Set sets the weights of dest to be equal to the weights of source.
// The destination and source networks must have learnables of
// identical shapes, e.g. clones of each other with differing batch
// sizes.
func Set(dest, source NeuralNet) error {
	return dest.Set(source)
}
