package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"loom/internal/fileutil"
	"loom/internal/services"
)

// ManifestName is the per-corpus manifest file name.
const ManifestName = "dataset_metadata.json"

// Manifest describes one published corpus. Counts cover every published
// shard in the corpus directory, not just the most recent run.
type Manifest struct {
	DatasetName      string    `json:"dataset_name"`
	Corpus           string    `json:"corpus"`
	Generator        string    `json:"generator"`
	CreatedAt        time.Time `json:"created_at"`
	Episodes         int       `json:"episodes"`
	Steps            int       `json:"steps"`
	PlaceholderSteps int       `json:"placeholder_steps"`
	PlaceholderShare float64   `json:"placeholder_share"`
	ImageSize        int       `json:"image_size"`
	VectorDim        int       `json:"vector_dim"`
	Shards           int       `json:"shards"`
}

func writeManifest(dir string, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	return fileutil.WriteFileAtomic(filepath.Join(dir, ManifestName), data, 0o644)
}

// LoadManifest reads a corpus manifest.
func LoadManifest(corpusDir string) (*Manifest, error) {
	path := filepath.Join(corpusDir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "dataset", "manifest", fmt.Sprintf("no manifest at %s", path), err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, services.Wrap(services.ErrValidation, "dataset", "manifest", fmt.Sprintf("parse %s", path), err)
	}
	return &manifest, nil
}
