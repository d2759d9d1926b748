package network

import (
	"testing"

	G "gorgonia.org/gorgonia"
)

func newTestMLP(t *testing.T, features, batch, outputs int) NeuralNet {
	t.Helper()

	net, err := NewMultiHeadMLP(features, batch, outputs, G.NewGraph(),
		[]int{5}, []bool{true}, G.GlorotU(1.0),
		[]*Activation{ReLU()})
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	return net
}

func TestMultiHeadMLPShapes(t *testing.T) {
	const (
		features = 3
		batch    = 2
		outputs  = 4
	)

	net := newTestMLP(t, features, batch, outputs)

	if net.Features() != features {
		t.Errorf("expected %d features, got %d", features, net.Features())
	}
	if net.BatchSize() != batch {
		t.Errorf("expected batch size %d, got %d", batch, net.BatchSize())
	}
	if net.Outputs() != outputs {
		t.Errorf("expected %d outputs, got %d", outputs, net.Outputs())
	}

	shape := net.Prediction()[0].Shape()
	if len(shape) != 2 || shape[0] != batch || shape[1] != outputs {
		t.Errorf("expected prediction shape (%d, %d), got %v", batch,
			outputs, shape)
	}
}

func TestSetInputValidatesLength(t *testing.T) {
	net := newTestMLP(t, 3, 2, 4)

	if err := net.SetInput(make([]float64, 5)); err == nil {
		t.Errorf("expected an error for an input of the wrong length")
	}
	if err := net.SetInput(make([]float64, 6)); err != nil {
		t.Errorf("expected a batch input to be accepted: %v", err)
	}
}

func TestSetCopiesWeights(t *testing.T) {
	source := newTestMLP(t, 3, 2, 4)
	dest := newTestMLP(t, 3, 2, 4)

	if err := Set(dest, source); err != nil {
		t.Fatalf("could not copy weights: %v", err)
	}

	sourceLearnables := source.Learnables()
	destLearnables := dest.Learnables()
	if len(sourceLearnables) != len(destLearnables) {
		t.Fatalf("expected %d learnables, got %d", len(sourceLearnables),
			len(destLearnables))
	}

	for i := range sourceLearnables {
		want := sourceLearnables[i].Value().Data().([]float64)
		got := destLearnables[i].Value().Data().([]float64)

		if len(want) != len(got) {
			t.Fatalf("learnable %v: expected %d weights, got %d",
				sourceLearnables[i].Name(), len(want), len(got))
		}
		for j := range want {
			if want[j] != got[j] {
				t.Errorf("learnable %v: weight %d not copied",
					sourceLearnables[i].Name(), j)
				break
			}
		}
	}
}
