package tracker

import (
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gopg/timestep"
)

// episodeSteps constructs the timesteps of an episode with the
// argument rewards. The first step has reward 0 and the final step is
// marked as the last in the episode.
func episodeSteps(rewards []float64) []ts.TimeStep {
	obs := mat.NewVecDense(1, []float64{0})

	steps := []ts.TimeStep{ts.New(ts.First, 0, 1, obs, 0)}
	for i, r := range rewards {
		stepType := ts.Mid
		if i == len(rewards)-1 {
			stepType = ts.Last
		}
		step := ts.New(stepType, r, 1, obs, i+1)
		if stepType == ts.Last {
			step.SetEnd(ts.TerminalStateReached)
		}
		steps = append(steps, step)
	}
	return steps
}

func TestReturnTracksEpisodicReturns(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "data.bin")
	tracker := NewReturn(filename)

	episodes := [][]float64{
		{1, 1, 1},
		{1, -1},
		{-1},
	}
	expected := []float64{3, 0, -1}

	for _, rewards := range episodes {
		for _, step := range episodeSteps(rewards) {
			tracker.Track(step)
		}
	}

	if err := tracker.Save(); err != nil {
		t.Fatalf("could not save data: %v", err)
	}

	data, err := LoadData(filename)
	if err != nil {
		t.Fatalf("could not load data: %v", err)
	}
	if len(data) != len(expected) {
		t.Fatalf("expected %d episodic returns, got %d", len(expected),
			len(data))
	}
	for i := range expected {
		if math.Abs(data[i]-expected[i]) > 1e-8 {
			t.Errorf("episode %d: expected return %v, got %v", i,
				expected[i], data[i])
		}
	}
}

func TestReturnPanicsOnNonSequentialTimesteps(t *testing.T) {
	tracker := NewReturn(filepath.Join(t.TempDir(), "data.bin"))

	obs := mat.NewVecDense(1, []float64{0})
	tracker.Track(ts.New(ts.First, 0, 1, obs, 0))

	defer func() {
		if recover() == nil {
			t.Errorf("expected tracking non-sequential timesteps to panic")
		}
	}()
	tracker.Track(ts.New(ts.Mid, 1, 1, obs, 5))
}

func TestEpisodeLengthTracksFinishedEpisodes(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "data.bin")
	tracker := NewEpisodeLength(filename)

	episodes := [][]float64{
		{1, 1, 1, 1},
		{1, 1},
	}
	expected := []float64{4, 2}

	for _, rewards := range episodes {
		for _, step := range episodeSteps(rewards) {
			tracker.Track(step)
		}
	}

	// An unfinished episode should not be recorded
	obs := mat.NewVecDense(1, []float64{0})
	tracker.Track(ts.New(ts.First, 0, 1, obs, 0))
	tracker.Track(ts.New(ts.Mid, 1, 1, obs, 1))

	if err := tracker.Save(); err != nil {
		t.Fatalf("could not save data: %v", err)
	}

	data, err := LoadData(filename)
	if err != nil {
		t.Fatalf("could not load data: %v", err)
	}
	if len(data) != len(expected) {
		t.Fatalf("expected %d episode lengths, got %d", len(expected),
			len(data))
	}
	for i := range expected {
		if data[i] != expected[i] {
			t.Errorf("episode %d: expected length %v, got %v", i,
				expected[i], data[i])
		}
	}
}
