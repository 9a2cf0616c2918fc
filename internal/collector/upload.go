package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"loom/internal/fileutil"
	"loom/internal/logging"
)

// uploadMemoryLimit bounds the in-memory part of multipart parsing; larger
// frames spill to temp files.
const uploadMemoryLimit = 4 << 20

// frameSidecar is the metadata written next to every stored frame. The image
// indexer reads the timestamp back out of it.
type frameSidecar struct {
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"`
	TaskName  string `json:"task_name"`
	CommandID string `json:"command_id,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if r.ContentLength > s.maxBytes {
		s.metrics.uploadFailures.Inc()
		s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB limit", s.maxBytes>>20))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		s.metrics.uploadFailures.Inc()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	task, err := sanitizeTask(r.FormValue("task_name"))
	if err != nil {
		s.metrics.uploadFailures.Inc()
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("timestamp")), 64)
	if err != nil || seconds <= 0 {
		s.metrics.uploadFailures.Inc()
		s.writeError(w, http.StatusBadRequest, "timestamp must be positive unix seconds")
		return
	}
	captureMS := int64(math.Round(seconds * 1000.0))

	file, _, err := r.FormFile("image")
	if err != nil {
		s.metrics.uploadFailures.Inc()
		s.writeError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.metrics.uploadFailures.Inc()
		s.writeError(w, http.StatusBadRequest, "cannot read image file")
		return
	}
	if len(data) == 0 {
		s.metrics.uploadFailures.Inc()
		s.writeError(w, http.StatusBadRequest, "empty image file")
		return
	}

	name := fmt.Sprintf("%d.jpg", captureMS)
	dir := filepath.Join(s.dataDir, task)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.uploadStoreError(w, "create task directory", err)
		return
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, name), data, 0o644); err != nil {
		s.uploadStoreError(w, "store frame", err)
		return
	}

	sidecar := frameSidecar{
		Filename:  name,
		Timestamp: strconv.FormatFloat(float64(captureMS)/1000.0, 'f', 3, 64),
		TaskName:  task,
		CommandID: strings.TrimSpace(r.FormValue("command_id")),
	}
	sidecarData, err := json.Marshal(sidecar)
	if err != nil {
		s.uploadStoreError(w, "encode sidecar", err)
		return
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, name+".json"), sidecarData, 0o644); err != nil {
		s.uploadStoreError(w, "store sidecar", err)
		return
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(s.dataDir, "latest.jpg"), data, 0o644); err != nil {
		s.logger.Warn("latest frame refresh failed", logging.Error(err))
	}

	s.metrics.uploads.Inc()
	s.metrics.uploadBytes.Add(float64(len(data)))
	s.mu.Lock()
	s.uploads++
	s.lastUpload = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Info("frame stored",
		logging.String(logging.FieldTask, task),
		logging.Int64("capture_ms", captureMS),
		logging.Int("bytes", len(data)),
	)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "stored",
		"task_name":  task,
		"filename":   name,
		"capture_ms": captureMS,
	})
}

func (s *Server) uploadStoreError(w http.ResponseWriter, operation string, err error) {
	s.metrics.uploadFailures.Inc()
	s.logger.Error("frame upload failed", logging.String("operation", operation), logging.Error(err))
	s.writeError(w, http.StatusInternalServerError, operation+" failed")
}

// sanitizeTask rejects task names that would escape the data directory.
func sanitizeTask(raw string) (string, error) {
	task := strings.TrimSpace(raw)
	if task == "" {
		return "", errors.New("task_name is required")
	}
	if strings.ContainsAny(task, `/\`) || task == "." || task == ".." || strings.HasPrefix(task, ".") {
		return "", fmt.Errorf("invalid task_name %q", raw)
	}
	return task, nil
}
