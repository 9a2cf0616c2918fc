package trace

// Sample is one pose reading from an episode trace. Samples are immutable
// once parsed; their order within the episode defines the step index.
type Sample struct {
	// TimestampMS is the capture time in Unix milliseconds.
	TimestampMS int64
	// Coords holds x, y, z, roll, pitch, yaw in the order recorded.
	Coords [6]float64
	// Gripper is the raw gripper opening in [0, 100].
	Gripper float64
}

// Episode is one complete recorded demonstration parsed from a trace file.
// It owns its samples exclusively; downstream components read them only.
type Episode struct {
	// ID derives from the source filename stem and drives classification.
	ID              string
	TaskName        string
	TaskSuccess     bool
	DurationSeconds float64
	SourcePath      string
	Samples         []Sample
}

// Stats reports what the loader recovered from and discarded in one file.
type Stats struct {
	// Parsed counts raw entries seen in the trace array.
	Parsed int
	// Dropped counts entries discarded for missing or malformed fields.
	Dropped int
	// Resorted is true when samples arrived out of timestamp order.
	Resorted bool
}
