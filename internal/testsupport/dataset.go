package testsupport

import (
	"testing"

	"loom/internal/classify"
	"loom/internal/dataset"
)

// MustOpenWriter opens a corpus writer for tests and registers cleanup.
func MustOpenWriter(t testing.TB, datasetDir string, corpus classify.Corpus, opts dataset.WriterOptions) *dataset.Writer {
	t.Helper()

	w, err := dataset.NewWriter(datasetDir, corpus, opts)
	if err != nil {
		t.Fatalf("dataset.NewWriter: %v", err)
	}
	t.Cleanup(func() {
		_ = w.Close()
	})
	return w
}
