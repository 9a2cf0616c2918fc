package testsupport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"loom/internal/trace"
)

// TraceFile describes one recording fixture.
type TraceFile struct {
	ID              string
	TaskName        string
	TaskSuccess     bool
	DurationSeconds float64
	Samples         []trace.Sample
}

// WriteTrace writes a recording file in the raw capture schema and returns
// its path.
func WriteTrace(t testing.TB, dir string, tf TraceFile) string {
	t.Helper()

	type rawSample struct {
		TimestampMS int64     `json:"timestamp_ms"`
		Coords      []float64 `json:"coords"`
		Gripper     float64   `json:"gripper_value"`
	}
	doc := struct {
		Metadata map[string]any `json:"metadata"`
		Trace    []rawSample    `json:"trace"`
	}{
		Metadata: map[string]any{
			"task_name":        tf.TaskName,
			"task_success":     tf.TaskSuccess,
			"duration_seconds": tf.DurationSeconds,
		},
	}
	for _, sample := range tf.Samples {
		doc.Trace = append(doc.Trace, rawSample{
			TimestampMS: sample.TimestampMS,
			Coords:      sample.Coords[:],
			Gripper:     sample.Gripper,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal trace fixture: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, tf.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write trace fixture: %v", err)
	}
	return path
}

// SimpleSamples builds count samples spaced stepMS apart with slowly moving
// coordinates, good enough for matching and vector assertions.
func SimpleSamples(count int, stepMS int64) []trace.Sample {
	samples := make([]trace.Sample, count)
	for i := range samples {
		samples[i] = trace.Sample{
			TimestampMS: int64(i) * stepMS,
			Coords:      [6]float64{float64(i), float64(i) * 2, 100, 0, 0, float64(i) * -1},
			Gripper:     float64((i * 10) % 101),
		}
	}
	return samples
}

// WriteJPEG writes a small uniform JPEG frame to path.
func WriteJPEG(t testing.TB, path string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteFrame writes one captured frame named after its capture time plus the
// sidecar the collector produces, and returns the image path.
func WriteFrame(t testing.TB, imagesDir, episodeDir string, captureMS int64) string {
	t.Helper()

	name := fmt.Sprintf("%d.jpg", captureMS)
	path := filepath.Join(imagesDir, episodeDir, name)
	WriteJPEG(t, path)

	sidecar := map[string]any{
		"filename":  name,
		"timestamp": strconv.FormatFloat(float64(captureMS)/1000.0, 'f', 3, 64),
		"task_name": episodeDir,
	}
	data, err := json.Marshal(sidecar)
	if err != nil {
		t.Fatalf("marshal sidecar: %v", err)
	}
	if err := os.WriteFile(path+".json", data, 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
	return path
}
