package vector

import "loom/internal/trace"

// Dim is the length of every state and action vector.
const Dim = 7

// StepVectors holds the numeric arrays for one step.
type StepVectors struct {
	State  [Dim]float32
	Action [Dim]float32
}

// State converts one sample into its state vector: the six pose coordinates
// as recorded, plus the gripper value normalized from [0,100] to [0,1] and
// clamped so out-of-range hardware readings stay in bounds.
func State(sample trace.Sample) [Dim]float32 {
	var out [Dim]float32
	for i, c := range sample.Coords {
		out[i] = float32(c)
	}
	out[Dim-1] = clampUnit(float32(sample.Gripper / 100.0))
	return out
}

// Build computes per-step state and action vectors for an episode. The
// action of step i is the elementwise float32 delta to the next state, so a
// consumer can verify action(i) == state(i+1) - state(i) exactly. The final
// step's action is the zero vector: a terminal step has no forward delta.
func Build(samples []trace.Sample) []StepVectors {
	if len(samples) == 0 {
		return nil
	}
	out := make([]StepVectors, len(samples))
	for i := range samples {
		out[i].State = State(samples[i])
	}
	for i := 0; i < len(out)-1; i++ {
		for j := 0; j < Dim; j++ {
			out[i].Action[j] = out[i+1].State[j] - out[i].State[j]
		}
	}
	return out
}

func clampUnit(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
