package collector

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type statusResponse struct {
	Status         string   `json:"status"`
	DataDir        string   `json:"data_dir"`
	Uploads        int      `json:"uploads"`
	LastUpload     string   `json:"last_upload,omitempty"`
	CommandsIssued int      `json:"commands_issued"`
	PendingCommand *Command `json:"pending_command,omitempty"`
	UptimeSeconds  float64  `json:"uptime_seconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.Lock()
	uploads := s.uploads
	lastUpload := s.lastUpload
	startedAt := s.startedAt
	s.mu.Unlock()

	resp := statusResponse{
		Status:         "running",
		DataDir:        s.dataDir,
		Uploads:        uploads,
		CommandsIssued: s.commands.Issued(),
		PendingCommand: s.commands.Latest(),
	}
	if !lastUpload.IsZero() {
		resp.LastUpload = lastUpload.Format(time.RFC3339)
	}
	if !startedAt.IsZero() {
		resp.UptimeSeconds = time.Since(startedAt).Seconds()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			s.writeJSON(w, http.StatusOK, map[string]any{"tasks": []string{}})
			return
		}
		s.writeError(w, http.StatusInternalServerError, "cannot read data directory")
		return
	}
	tasks := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			tasks = append(tasks, entry.Name())
		}
	}
	sort.Strings(tasks)
	s.writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	task, err := sanitizeTask(strings.TrimPrefix(r.URL.Path, "/api/images/"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := os.ReadDir(filepath.Join(s.dataDir, task))
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, http.StatusNotFound, "no such task")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "cannot read task directory")
		return
	}
	images := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == "latest.jpg" {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".jpg", ".jpeg", ".png":
			images = append(images, name)
		}
	}
	sort.Strings(images)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"task":   task,
		"images": images,
		"count":  len(images),
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sub := strings.TrimPrefix(r.URL.Path, "/api/image/")
	full, ok := s.resolveDataPath(sub)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid image path")
		return
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "image not found")
		return
	}
	http.ServeFile(w, r, full)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	full := filepath.Join(s.dataDir, "latest.jpg")
	if _, err := os.Stat(full); err != nil {
		s.writeError(w, http.StatusNotFound, "no frames uploaded yet")
		return
	}
	http.ServeFile(w, r, full)
}

// resolveDataPath joins a request path onto the data directory, refusing
// anything that would escape it.
func (s *Server) resolveDataPath(sub string) (string, bool) {
	if sub == "" || strings.Contains(sub, "..") || filepath.IsAbs(sub) {
		return "", false
	}
	full := filepath.Join(s.dataDir, filepath.Clean(sub))
	root := filepath.Clean(s.dataDir) + string(filepath.Separator)
	if !strings.HasPrefix(full, root) {
		return "", false
	}
	return full, true
}
