package dataset_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"loom/internal/classify"
	"loom/internal/dataset"
	"loom/internal/imageindex"
	"loom/internal/match"
	"loom/internal/raster"
	"loom/internal/services"
	"loom/internal/trace"
	"loom/internal/vector"
)

func writeTestPNG(t *testing.T, dir, name string, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestEncode(t *testing.T) {
	dir := t.TempDir()
	framePath := writeTestPNG(t, dir, "frame.png", color.RGBA{R: 250, G: 10, B: 10, A: 255})

	ep := &trace.Episode{
		ID:              "7",
		TaskName:        "7",
		TaskSuccess:     true,
		DurationSeconds: 1.5,
		SourcePath:      filepath.Join(dir, "7.json"),
		Samples: []trace.Sample{
			{TimestampMS: 0, Gripper: 0},
			{TimestampMS: 100, Gripper: 50},
			{TimestampMS: 200, Gripper: 100},
		},
	}
	steps := []match.Step{
		{Sample: ep.Samples[0], Image: imageindex.Record{CaptureMS: 5, Path: framePath}, OffsetMS: 5},
		{Sample: ep.Samples[1], Placeholder: true},
		{Sample: ep.Samples[2], Image: imageindex.Record{CaptureMS: 205, Path: framePath}, OffsetMS: 5},
	}
	vecs := vector.Build(ep.Samples)

	encoded, anomalies := dataset.Encode(ep, steps, vecs, classify.ClassNumbered, dataset.EncodeOptions{ImageSize: 8})
	if len(anomalies) != 0 {
		t.Fatalf("unexpected anomalies: %v", anomalies)
	}
	if len(encoded.Steps) != 3 {
		t.Fatalf("step count %d, want 3", len(encoded.Steps))
	}
	if encoded.Instruction != "7" {
		t.Fatalf("instruction %q, want bare identifier", encoded.Instruction)
	}
	if encoded.ImageSize != 8 {
		t.Fatalf("image size %d, want 8", encoded.ImageSize)
	}

	for i, step := range encoded.Steps {
		if len(step.Image) != raster.Len(8) {
			t.Fatalf("step %d raster length %d, want %d", i, len(step.Image), raster.Len(8))
		}
		if step.Discount != 1 {
			t.Fatalf("step %d discount %v, want 1", i, step.Discount)
		}
		if step.State != vecs[i].State || step.Action != vecs[i].Action {
			t.Fatalf("step %d vectors diverged", i)
		}
		if got, want := step.IsFirst, i == 0; got != want {
			t.Fatalf("step %d is_first = %v", i, got)
		}
		last := i == len(encoded.Steps)-1
		if step.IsLast != last || step.IsTerminal != last {
			t.Fatalf("step %d terminal flags wrong", i)
		}
		if want := float32(0); last {
			want = 1
			if step.Reward != want {
				t.Fatalf("final reward %v, want 1", step.Reward)
			}
		} else if step.Reward != want {
			t.Fatalf("step %d reward %v, want 0", i, step.Reward)
		}
	}

	if !encoded.Steps[1].Placeholder {
		t.Fatal("step 1 should be a placeholder")
	}
	for _, b := range encoded.Steps[1].Image {
		if b != 128 {
			t.Fatal("placeholder raster should be uniform mid-gray")
		}
	}
	if encoded.Steps[0].Placeholder || encoded.Steps[2].Placeholder {
		t.Fatal("matched steps should carry real rasters")
	}
	if encoded.PlaceholderSteps() != 1 {
		t.Fatalf("placeholder count %d, want 1", encoded.PlaceholderSteps())
	}
}

func TestEncodeRewardZeroWhenTaskFailed(t *testing.T) {
	ep := &trace.Episode{
		ID:      "3",
		Samples: []trace.Sample{{TimestampMS: 0}, {TimestampMS: 50}},
	}
	steps := []match.Step{
		{Sample: ep.Samples[0], Placeholder: true},
		{Sample: ep.Samples[1], Placeholder: true},
	}
	encoded, _ := dataset.Encode(ep, steps, vector.Build(ep.Samples), classify.ClassNumbered, dataset.EncodeOptions{ImageSize: 4})
	for i, step := range encoded.Steps {
		if step.Reward != 0 {
			t.Fatalf("step %d reward %v, want 0 for a failed task", i, step.Reward)
		}
	}
}

func TestEncodeUnreadableImageBecomesPlaceholder(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "corrupt.jpg")
	if err := os.WriteFile(badPath, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write corrupt image: %v", err)
	}

	ep := &trace.Episode{ID: "9", Samples: []trace.Sample{{TimestampMS: 0}}}
	steps := []match.Step{
		{Sample: ep.Samples[0], Image: imageindex.Record{CaptureMS: 3, Path: badPath}, OffsetMS: 3},
	}
	encoded, anomalies := dataset.Encode(ep, steps, vector.Build(ep.Samples), classify.ClassNumbered, dataset.EncodeOptions{ImageSize: 4})

	if len(anomalies) != 1 {
		t.Fatalf("anomaly count %d, want 1", len(anomalies))
	}
	if !errors.Is(anomalies[0].Err, services.ErrImageDecode) {
		t.Fatalf("anomaly %v should carry the image-decode marker", anomalies[0].Err)
	}
	step := encoded.Steps[0]
	if !step.Placeholder {
		t.Fatal("unreadable image should downgrade the step to a placeholder")
	}
	if len(step.Image) != raster.Len(4) {
		t.Fatalf("placeholder raster length %d, want %d", len(step.Image), raster.Len(4))
	}
	if step.OffsetMS != 0 {
		t.Fatalf("placeholder offset %d, want 0", step.OffsetMS)
	}
}
