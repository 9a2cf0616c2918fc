package match

import (
	"math"
	"time"

	"loom/internal/imageindex"
	"loom/internal/trace"
)

// DefaultMaxOffset is the widest |image capture - sample| distance at
// which a real image is still accepted for a step.
const DefaultMaxOffset = 500 * time.Millisecond

// Params tunes the two matching passes. An unset MaxOffset falls back to
// DefaultMaxOffset; a zero SearchRadius disables refinement, leaving the
// proportional assignment as-is.
type Params struct {
	MaxOffset    time.Duration
	SearchRadius int
}

func (p Params) withDefaults() Params {
	if p.MaxOffset <= 0 {
		p.MaxOffset = DefaultMaxOffset
	}
	if p.SearchRadius < 0 {
		p.SearchRadius = 0
	}
	return p
}

// Step pairs one trace sample with its matched image. Placeholder steps are
// a first-class variant: the sample is retained and the encoder substitutes
// the fixed placeholder raster, so step count never depends on image count.
type Step struct {
	Sample      trace.Sample
	Image       imageindex.Record
	Placeholder bool
	// OffsetMS is |image capture - sample timestamp| for matched steps.
	OffsetMS int64
}

// Stats summarizes match quality for one episode.
type Stats struct {
	Matched      int
	Placeholders int
	// MeanOffsetMS averages the absolute time offset across matched steps.
	MeanOffsetMS float64
}

// Match aligns the image set to the sample sequence and produces exactly one
// step per sample. The global proportional pass spreads the image set across
// the episode; the bounded refinement pass corrects local skew; the offset
// gate downgrades steps whose best image is still too far away in time.
func Match(samples []trace.Sample, images []imageindex.Record, params Params) []Step {
	params = params.withDefaults()

	steps := make([]Step, len(samples))
	if len(images) == 0 {
		for i, sample := range samples {
			steps[i] = Step{Sample: sample, Placeholder: true}
		}
		return steps
	}

	assign := Proportional(len(samples), len(images))
	assign = Refine(samples, images, assign, params.SearchRadius)

	maxOffsetMS := params.MaxOffset.Milliseconds()
	for i, sample := range samples {
		image := images[assign[i]]
		offset := absInt64(image.CaptureMS - sample.TimestampMS)
		if offset > maxOffsetMS {
			steps[i] = Step{Sample: sample, Placeholder: true}
			continue
		}
		steps[i] = Step{Sample: sample, Image: image, OffsetMS: offset}
	}
	return steps
}

// Proportional computes the evenly-spread monotone assignment from sample
// index to image index: sample i of n maps to round(i*(m-1)/(n-1)). The
// result covers the image set end to end for any rate mismatch and is
// deterministic and order-preserving.
func Proportional(sampleCount, imageCount int) []int {
	if sampleCount <= 0 || imageCount <= 0 {
		return nil
	}
	assign := make([]int, sampleCount)
	if sampleCount == 1 {
		// Single-sample episodes take the first image rather than dividing
		// by zero in the spread formula.
		return assign
	}
	scale := float64(imageCount-1) / float64(sampleCount-1)
	for i := range assign {
		assign[i] = int(math.Round(float64(i) * scale))
	}
	return assign
}

// Refine searches a bounded index neighborhood around each proportional
// candidate for the image nearest the sample's timestamp. Ties break toward
// the earlier image, and a refined choice never drops below the previous
// step's choice, so assignment stays monotone.
func Refine(samples []trace.Sample, images []imageindex.Record, assign []int, radius int) []int {
	if len(assign) != len(samples) || len(images) == 0 {
		return assign
	}
	refined := make([]int, len(assign))
	floor := 0
	for i, candidate := range assign {
		low := candidate - radius
		if low < floor {
			low = floor
		}
		high := candidate + radius
		if high > len(images)-1 {
			high = len(images) - 1
		}
		if low > high {
			// The monotonicity floor has moved past the whole window; stay
			// on the floor image rather than stepping backwards.
			low = floor
			high = floor
		}

		best := low
		bestDistance := absInt64(images[low].CaptureMS - samples[i].TimestampMS)
		for j := low + 1; j <= high; j++ {
			distance := absInt64(images[j].CaptureMS - samples[i].TimestampMS)
			if distance < bestDistance {
				best = j
				bestDistance = distance
			}
		}
		refined[i] = best
		floor = best
	}
	return refined
}

// Summarize folds per-step match results into episode-level quality stats.
func Summarize(steps []Step) Stats {
	var stats Stats
	var totalOffset int64
	for _, step := range steps {
		if step.Placeholder {
			stats.Placeholders++
			continue
		}
		stats.Matched++
		totalOffset += step.OffsetMS
	}
	if stats.Matched > 0 {
		stats.MeanOffsetMS = float64(totalOffset) / float64(stats.Matched)
	}
	return stats
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
