package dataset

import (
	"time"

	"loom/internal/classify"
	"loom/internal/match"
	"loom/internal/raster"
	"loom/internal/trace"
	"loom/internal/vector"
)

// EncodeOptions tunes episode encoding.
type EncodeOptions struct {
	// ImageSize is the square raster edge; raster.DefaultSize when zero.
	ImageSize int
}

func (o EncodeOptions) withDefaults() EncodeOptions {
	if o.ImageSize <= 0 {
		o.ImageSize = raster.DefaultSize
	}
	return o
}

// Anomaly records a locally recovered per-step failure during encoding.
type Anomaly struct {
	Step int
	Err  error
}

// Encode turns a loaded episode plus its matched steps and vectors into the
// shard-ready form. Image loading happens here: matched images are decoded
// and resampled to the fixed raster, and a decode failure downgrades that
// step to a placeholder and is reported as an anomaly instead of failing the
// episode. The final step of a successful episode carries reward 1; every
// step carries discount 1 and is_terminal mirrors is_last.
func Encode(ep *trace.Episode, steps []match.Step, vectors []vector.StepVectors, class classify.Class, opts EncodeOptions) (*Episode, []Anomaly) {
	opts = opts.withDefaults()

	encoded := &Episode{
		ID:              ep.ID,
		TaskName:        ep.TaskName,
		Instruction:     classify.Instruction(class, ep.ID, ep.TaskName),
		Classification:  class,
		TaskSuccess:     ep.TaskSuccess,
		DurationSeconds: ep.DurationSeconds,
		SourcePath:      ep.SourcePath,
		ImageSize:       opts.ImageSize,
		CreatedAt:       time.Now().UTC(),
		Steps:           make([]Step, len(steps)),
	}

	var anomalies []Anomaly
	last := len(steps) - 1
	for i, step := range steps {
		out := Step{
			Index:       i,
			Placeholder: step.Placeholder,
			OffsetMS:    step.OffsetMS,
			State:       vectors[i].State,
			Action:      vectors[i].Action,
			Discount:    1,
			IsFirst:     i == 0,
			IsLast:      i == last,
			IsTerminal:  i == last,
		}
		if out.IsLast && ep.TaskSuccess {
			out.Reward = 1
		}
		if step.Placeholder {
			out.Image = raster.Placeholder(opts.ImageSize)
		} else {
			data, err := raster.Load(step.Image.Path, opts.ImageSize)
			if err != nil {
				anomalies = append(anomalies, Anomaly{Step: i, Err: err})
				out.Image = raster.Placeholder(opts.ImageSize)
				out.Placeholder = true
				out.OffsetMS = 0
			} else {
				out.Image = data
			}
		}
		encoded.Steps[i] = out
	}
	return encoded, anomalies
}
