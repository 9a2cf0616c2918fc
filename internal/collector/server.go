package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"loom/internal/config"
	"loom/internal/logging"
)

// Server is the capture collector: the HTTP service the mobile capture
// client polls for commands and pushes frames to. Frames land under
// <data_dir>/<task>/ named by capture millisecond, next to the sidecar the
// image indexer reads back.
type Server struct {
	bind     string
	dataDir  string
	maxBytes int64
	logger   *slog.Logger

	commands *commandQueue
	metrics  *serverMetrics

	listener net.Listener
	server   *http.Server

	mu         sync.Mutex
	startedAt  time.Time
	uploads    int
	lastUpload time.Time
}

// New builds a collector server from the configuration. The server does not
// listen until Start is called.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &Server{
		bind:     cfg.Collector.Bind,
		dataDir:  cfg.Collector.DataDir,
		maxBytes: int64(cfg.Collector.MaxUploadMB) << 20,
		logger:   logging.NewComponentLogger(logger, "collector"),
		commands: &commandQueue{},
		metrics:  newServerMetrics(),
	}
	if srv.dataDir == "" {
		srv.dataDir = cfg.Paths.ImagesDir
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/command", srv.handleCommand)
	mux.HandleFunc("/api/poll", srv.handlePoll)
	mux.HandleFunc("/api/upload", srv.handleUpload)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/tasks", srv.handleTasks)
	mux.HandleFunc("/api/images/", srv.handleImages)
	mux.HandleFunc("/api/image/", srv.handleImage)
	mux.HandleFunc("/api/latest", srv.handleLatest)
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.Handle("/metrics", srv.metrics.handler())

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start binds the listener and serves until ctx is canceled or Stop is
// called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("collector listen: %w", err)
	}
	s.listener = listener
	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("collector server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("collector listening",
		logging.String("address", listener.Addr().String()),
		logging.String("data_dir", s.dataDir),
	)
	return nil
}

// Addr reports the bound listener address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

type commandRequest struct {
	Command  string `json:"command"`
	TaskName string `json:"task_name"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid command payload")
		return
	}
	if !validCommand(req.Command) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown command %q", req.Command))
		return
	}

	cmd := s.commands.Push(req.Command, req.TaskName)
	s.metrics.commands.WithLabelValues(cmd.Command).Inc()
	s.logger.Info("capture command queued",
		logging.String("command", cmd.Command),
		logging.String(logging.FieldTask, cmd.TaskName),
		logging.String("command_id", cmd.ID),
	)
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "queued", "command": cmd})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cmd, ok := s.commands.Poll(r.URL.Query().Get("last_id"))
	if !ok {
		s.writeJSON(w, http.StatusOK, map[string]any{"command": nil})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"command": cmd})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
