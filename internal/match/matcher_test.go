package match_test

import (
	"testing"
	"time"

	"loom/internal/imageindex"
	"loom/internal/match"
	"loom/internal/trace"
)

func samplesAt(timestamps ...int64) []trace.Sample {
	out := make([]trace.Sample, len(timestamps))
	for i, ts := range timestamps {
		out[i] = trace.Sample{TimestampMS: ts}
	}
	return out
}

func imagesAt(timestamps ...int64) []imageindex.Record {
	out := make([]imageindex.Record, len(timestamps))
	for i, ts := range timestamps {
		out[i] = imageindex.Record{CaptureMS: ts, Path: "img"}
	}
	return out
}

func TestMatchZeroImagesYieldsAllPlaceholders(t *testing.T) {
	samples := samplesAt(0, 100, 200, 300)
	steps := match.Match(samples, nil, match.Params{})
	if len(steps) != len(samples) {
		t.Fatalf("step count %d != sample count %d", len(steps), len(samples))
	}
	for i, step := range steps {
		if !step.Placeholder {
			t.Fatalf("step %d should be a placeholder", i)
		}
		if step.Sample.TimestampMS != samples[i].TimestampMS {
			t.Fatalf("step %d lost its sample", i)
		}
	}
}

func TestMatchStepCountIndependentOfImageCount(t *testing.T) {
	samples := samplesAt(0, 100, 200)
	for _, images := range [][]imageindex.Record{
		nil,
		imagesAt(50),
		imagesAt(0, 30, 60, 90, 120, 150, 180, 210, 240, 270),
	} {
		steps := match.Match(samples, images, match.Params{})
		if len(steps) != len(samples) {
			t.Fatalf("with %d images: step count %d != %d", len(images), len(steps), len(samples))
		}
	}
}

func TestProportionalSpread(t *testing.T) {
	cases := []struct {
		samples int
		images  int
		want    []int
	}{
		{samples: 1, images: 4, want: []int{0}},
		{samples: 3, images: 3, want: []int{0, 1, 2}},
		{samples: 5, images: 3, want: []int{0, 1, 1, 2, 2}},
		{samples: 3, images: 10, want: []int{0, 5, 9}},
		{samples: 4, images: 1, want: []int{0, 0, 0, 0}},
	}
	for _, tc := range cases {
		got := match.Proportional(tc.samples, tc.images)
		if len(got) != len(tc.want) {
			t.Fatalf("Proportional(%d,%d) length %d, want %d", tc.samples, tc.images, len(got), len(tc.want))
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("Proportional(%d,%d) = %v, want %v", tc.samples, tc.images, got, tc.want)
			}
		}
	}
}

func TestProportionalIsMonotone(t *testing.T) {
	for _, shape := range []struct{ samples, images int }{
		{samples: 17, images: 5}, {samples: 5, images: 17}, {samples: 100, images: 99}, {samples: 2, images: 2},
	} {
		assign := match.Proportional(shape.samples, shape.images)
		for i := 1; i < len(assign); i++ {
			if assign[i] < assign[i-1] {
				t.Fatalf("Proportional(%d,%d) not monotone at %d: %v", shape.samples, shape.images, i, assign)
			}
		}
		if assign[0] != 0 || assign[len(assign)-1] != shape.images-1 {
			if shape.samples > 1 {
				t.Fatalf("Proportional(%d,%d) should cover the image range: %v", shape.samples, shape.images, assign)
			}
		}
	}
}

func TestRefineCorrectsLocalSkew(t *testing.T) {
	// Samples pace evenly while capture was bursty at the start, so the
	// proportional pass lands early and refinement must walk forward.
	samples := samplesAt(0, 100, 200, 300, 400, 500, 600, 700, 800, 900)
	images := imagesAt(0, 20, 40, 60, 80, 100, 120, 140, 160, 180)

	assign := match.Proportional(len(samples), len(images))
	refined := match.Refine(samples, images, assign, 5)

	if refined[0] != 0 {
		t.Fatalf("step 0 should keep image 0, got %d", refined[0])
	}
	if refined[1] != 5 {
		t.Fatalf("step 1 should refine to the t=100 image (index 5), got %d", refined[1])
	}
	for i := 1; i < len(refined); i++ {
		if refined[i] < refined[i-1] {
			t.Fatalf("refined assignment not monotone: %v", refined)
		}
	}
}

func TestRefineTieBreaksTowardEarlierImage(t *testing.T) {
	samples := samplesAt(100)
	images := imagesAt(50, 150)

	refined := match.Refine(samples, images, match.Proportional(1, 2), 3)
	if refined[0] != 0 {
		t.Fatalf("equidistant images should resolve to the earlier index, got %d", refined[0])
	}
}

func TestMatchScenarioNearestWithinWindow(t *testing.T) {
	samples := samplesAt(0, 100, 200)
	images := imagesAt(5, 50, 250)

	steps := match.Match(samples, images, match.Params{MaxOffset: 500 * time.Millisecond, SearchRadius: 5})
	wantCapture := []int64{5, 50, 250}
	for i, step := range steps {
		if step.Placeholder {
			t.Fatalf("step %d unexpectedly a placeholder", i)
		}
		if step.Image.CaptureMS != wantCapture[i] {
			t.Fatalf("step %d matched capture %d, want %d", i, step.Image.CaptureMS, wantCapture[i])
		}
	}

	// Tighten the acceptance gate below the final step's 50ms offset and the
	// trailing image must give way to a placeholder while earlier steps keep
	// their close matches.
	steps = match.Match(samples, images, match.Params{MaxOffset: 30 * time.Millisecond, SearchRadius: 5})
	if steps[0].Placeholder || steps[0].Image.CaptureMS != 5 {
		t.Fatalf("step 0 should keep its 5ms match: %+v", steps[0])
	}
	if !steps[1].Placeholder || !steps[2].Placeholder {
		t.Fatalf("steps beyond the offset gate should be placeholders: %+v", steps)
	}
}

func TestMatchAssignmentMonotoneAcrossAcceptedSteps(t *testing.T) {
	samples := samplesAt(0, 50, 100, 150, 200, 250, 300, 350)
	images := imagesAt(10, 40, 90, 160, 210, 340)

	steps := match.Match(samples, images, match.Params{MaxOffset: 100 * time.Millisecond, SearchRadius: 2})
	if len(steps) != len(samples) {
		t.Fatalf("step count mismatch: %d", len(steps))
	}
	var prev int64 = -1
	for _, step := range steps {
		if step.Placeholder {
			continue
		}
		if step.Image.CaptureMS < prev {
			t.Fatalf("accepted images out of order: %+v", steps)
		}
		prev = step.Image.CaptureMS
	}
}

func TestMatchSurplusImagesReachesEnd(t *testing.T) {
	samples := samplesAt(0, 1000)
	images := imagesAt(0, 5, 10, 995, 1000)

	steps := match.Match(samples, images, match.Params{})
	if steps[0].Image.CaptureMS != 0 {
		t.Fatalf("first step should match the first image, got %+v", steps[0])
	}
	if steps[1].Image.CaptureMS != 1000 {
		t.Fatalf("last step should match the final image, got %+v", steps[1])
	}
}

func TestSummarize(t *testing.T) {
	samples := samplesAt(0, 100, 200)
	images := imagesAt(5, 50, 250)
	steps := match.Match(samples, images, match.Params{MaxOffset: 60 * time.Millisecond})

	stats := match.Summarize(steps)
	if stats.Matched != 3 || stats.Placeholders != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	// Offsets are 5, 50, 50.
	if stats.MeanOffsetMS != 35 {
		t.Fatalf("mean offset = %f, want 35", stats.MeanOffsetMS)
	}

	stats = match.Summarize(match.Match(samples, nil, match.Params{}))
	if stats.Matched != 0 || stats.Placeholders != 3 || stats.MeanOffsetMS != 0 {
		t.Fatalf("unexpected placeholder stats: %+v", stats)
	}
}
