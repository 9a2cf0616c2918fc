package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"loom/internal/services"
)

// discoverTraces lists the recording files under dir in name order. Only
// *.json files count; hidden files and subdirectories are skipped.
func discoverTraces(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "pipeline", "discover", fmt.Sprintf("recordings directory %s does not exist", dir), err)
		}
		return nil, fmt.Errorf("read recordings directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// resolveImageDir picks the capture directory for an episode: a directory
// named after the episode id wins, then one named after the task. A missing
// directory is not an error; the episode just gets placeholder rasters.
func resolveImageDir(imagesDir, episodeID, taskName string) string {
	byID := filepath.Join(imagesDir, episodeID)
	if dirExists(byID) {
		return byID
	}
	if taskName != "" && taskName != episodeID {
		byTask := filepath.Join(imagesDir, taskName)
		if dirExists(byTask) {
			return byTask
		}
	}
	return byID
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
