package vector_test

import (
	"testing"

	"loom/internal/trace"
	"loom/internal/vector"
)

func TestStateLayoutAndGripperNormalization(t *testing.T) {
	sample := trace.Sample{
		Coords:  [6]float64{150.5, -20.25, 310.0, 178.9, -1.5, 92.75},
		Gripper: 50,
	}
	state := vector.State(sample)
	for i, want := range []float32{150.5, -20.25, 310.0, 178.9, -1.5, 92.75} {
		if state[i] != want {
			t.Fatalf("state[%d] = %v, want %v", i, state[i], want)
		}
	}
	if state[6] != 0.5 {
		t.Fatalf("state[6] = %v, want 0.5", state[6])
	}
}

func TestGripperBounds(t *testing.T) {
	cases := []struct {
		gripper float64
		want    float32
	}{
		{gripper: 0, want: 0},
		{gripper: 100, want: 1},
		{gripper: 25, want: 0.25},
		{gripper: -5, want: 0},
		{gripper: 140, want: 1},
	}
	for _, tc := range cases {
		state := vector.State(trace.Sample{Gripper: tc.gripper})
		if state[6] != tc.want {
			t.Errorf("gripper %v -> state[6] = %v, want %v", tc.gripper, state[6], tc.want)
		}
		if state[6] < 0 || state[6] > 1 {
			t.Errorf("gripper %v -> state[6] = %v outside [0,1]", tc.gripper, state[6])
		}
	}
}

func TestBuildActionIsForwardStateDelta(t *testing.T) {
	samples := []trace.Sample{
		{Coords: [6]float64{0, 0, 0, 0, 0, 0}, Gripper: 0},
		{Coords: [6]float64{1.5, -2, 3, 10, -10, 0.25}, Gripper: 40},
		{Coords: [6]float64{2, -2, 2.5, 20, -30, 1}, Gripper: 100},
	}
	vecs := vector.Build(samples)
	if len(vecs) != len(samples) {
		t.Fatalf("Build returned %d entries, want %d", len(vecs), len(samples))
	}
	for i := 0; i < len(vecs)-1; i++ {
		for j := 0; j < vector.Dim; j++ {
			want := vecs[i+1].State[j] - vecs[i].State[j]
			if vecs[i].Action[j] != want {
				t.Fatalf("action[%d][%d] = %v, want %v", i, j, vecs[i].Action[j], want)
			}
		}
	}
}

func TestBuildFinalActionIsZero(t *testing.T) {
	samples := []trace.Sample{
		{Coords: [6]float64{1, 2, 3, 4, 5, 6}, Gripper: 80},
		{Coords: [6]float64{6, 5, 4, 3, 2, 1}, Gripper: 20},
	}
	vecs := vector.Build(samples)
	last := vecs[len(vecs)-1]
	for j := 0; j < vector.Dim; j++ {
		if last.Action[j] != 0 {
			t.Fatalf("final action[%d] = %v, want 0", j, last.Action[j])
		}
	}
}

func TestBuildDegenerateLengths(t *testing.T) {
	if got := vector.Build(nil); got != nil {
		t.Fatalf("Build(nil) = %v, want nil", got)
	}
	vecs := vector.Build([]trace.Sample{{Gripper: 60}})
	if len(vecs) != 1 {
		t.Fatalf("single sample should yield one entry, got %d", len(vecs))
	}
	for j := 0; j < vector.Dim; j++ {
		if vecs[0].Action[j] != 0 {
			t.Fatalf("single-step action[%d] = %v, want 0", j, vecs[0].Action[j])
		}
	}
}
