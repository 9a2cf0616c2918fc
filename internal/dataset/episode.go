package dataset

import (
	"time"

	"loom/internal/classify"
	"loom/internal/vector"
)

// Step is one encoded dataset step: the observation raster and state, the
// action toward the next step, and the scalar RL fields. Shapes are fixed
// across the dataset: the image is ImageSize²×3 raw RGB bytes and the
// vectors carry vector.Dim elements.
type Step struct {
	Index       int
	Image       []byte
	Placeholder bool
	// OffsetMS is the absolute capture offset of the matched image in
	// milliseconds; zero for placeholder steps.
	OffsetMS   int64
	State      [vector.Dim]float32
	Action     [vector.Dim]float32
	Reward     float32
	Discount   float32
	IsFirst    bool
	IsLast     bool
	IsTerminal bool
}

// Episode is one fully encoded episode ready to append to a corpus shard.
type Episode struct {
	ID              string
	TaskName        string
	Instruction     string
	Classification  classify.Class
	TaskSuccess     bool
	DurationSeconds float64
	SourcePath      string
	ImageSize       int
	CreatedAt       time.Time
	Steps           []Step
}

// PlaceholderSteps counts steps carrying the placeholder raster.
func (e *Episode) PlaceholderSteps() int {
	count := 0
	for _, step := range e.Steps {
		if step.Placeholder {
			count++
		}
	}
	return count
}
