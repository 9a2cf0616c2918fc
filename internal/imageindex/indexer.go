package imageindex

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"loom/internal/services"
)

// Record locates one captured image and its extracted capture time. Records
// are weak references into the episode's image directory; nothing here owns
// the underlying file.
type Record struct {
	CaptureMS int64
	Path      string
}

// Stats reports what the indexer found and skipped in one directory.
type Stats struct {
	// Discovered counts image files seen in the directory.
	Discovered int
	// Indexed counts images with a usable capture timestamp.
	Indexed int
	// SkippedNoTimestamp counts images with no recoverable capture time.
	SkippedNoTimestamp int
	// SidecarErrors counts unreadable or malformed sidecar files.
	SidecarErrors int
}

// latestName is the rolling most-recent-frame copy the collector maintains;
// it duplicates another frame and carries no timestamp of its own.
const latestName = "latest.jpg"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IndexDir enumerates an episode's image directory and extracts a capture
// timestamp per image, preferring sidecar metadata over filename-embedded
// milliseconds. A missing directory yields zero records, not an error: trace
// integrity must not depend on capture completeness.
func IndexDir(dir string) ([]Record, Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, stats, nil
		}
		return nil, stats, services.Wrap(services.ErrNotFound, "imageindex", "scan", "cannot read image directory", err)
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == latestName {
			continue
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		stats.Discovered++

		path := filepath.Join(dir, name)
		captureMS, ok := sidecarTimestamp(path, &stats)
		if !ok {
			captureMS, ok = filenameTimestamp(name)
		}
		if !ok {
			stats.SkippedNoTimestamp++
			continue
		}

		stats.Indexed++
		records = append(records, Record{CaptureMS: captureMS, Path: path})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CaptureMS != records[j].CaptureMS {
			return records[i].CaptureMS < records[j].CaptureMS
		}
		return records[i].Path < records[j].Path
	})

	return records, stats, nil
}

type sidecar struct {
	Timestamp json.RawMessage `json:"timestamp"`
}

// sidecarTimestamp reads `<image>.json` when present. The capture clients
// write the timestamp as fractional Unix seconds, sometimes quoted.
func sidecarTimestamp(imagePath string, stats *Stats) (int64, bool) {
	data, err := os.ReadFile(imagePath + ".json")
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			stats.SidecarErrors++
		}
		return 0, false
	}

	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil || len(sc.Timestamp) == 0 {
		stats.SidecarErrors++
		return 0, false
	}

	raw := bytes.Trim(bytes.TrimSpace(sc.Timestamp), `"`)
	seconds, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || seconds <= 0 {
		stats.SidecarErrors++
		return 0, false
	}
	// Round, don't truncate: seconds back-computed from a millisecond count
	// must map to that same millisecond.
	return int64(math.Round(seconds * 1000.0)), true
}

// filenameTimestamp reads a leading digit run from the filename stem. Stems
// carry at least millisecond precision; extra digits beyond the first 13 are
// sub-millisecond noise and are ignored.
func filenameTimestamp(name string) (int64, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	digits := leadingDigits(stem)
	if len(digits) < 13 {
		return 0, false
	}
	ms, err := strconv.ParseInt(digits[:13], 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

func leadingDigits(s string) string {
	for i, r := range s {
		if r < '0' || r > '9' {
			return s[:i]
		}
	}
	return s
}
