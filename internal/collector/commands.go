package collector

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Command actions the capture client understands.
const (
	CommandStart = "start"
	CommandEnd   = "end"
)

// Command is one recording instruction queued for the capture client.
type Command struct {
	ID       string    `json:"id"`
	Command  string    `json:"command"`
	TaskName string    `json:"task_name,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}

// commandQueue holds the most recent command. Capture clients poll with the
// last command ID they executed; an unchanged ID means nothing new.
type commandQueue struct {
	mu     sync.Mutex
	latest *Command
	issued int
}

func validCommand(action string) bool {
	switch strings.TrimSpace(action) {
	case CommandStart, CommandEnd:
		return true
	}
	return false
}

// Push replaces the pending command and returns it with a fresh ID.
func (q *commandQueue) Push(action, taskName string) Command {
	cmd := Command{
		ID:       uuid.NewString(),
		Command:  strings.TrimSpace(action),
		TaskName: strings.TrimSpace(taskName),
		IssuedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.latest = &cmd
	q.issued++
	return cmd
}

// Poll returns the pending command unless the client already saw it.
func (q *commandQueue) Poll(lastID string) (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.latest == nil || q.latest.ID == lastID {
		return Command{}, false
	}
	return *q.latest, true
}

// Issued reports how many commands were pushed since startup.
func (q *commandQueue) Issued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.issued
}

// Latest returns the pending command for status reporting.
func (q *commandQueue) Latest() *Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.latest == nil {
		return nil
	}
	cmd := *q.latest
	return &cmd
}
