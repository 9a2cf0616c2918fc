package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loom/internal/notifications"
	"loom/internal/testsupport"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(cfg)
	if err := svc.NotifyRunStarted(context.Background(), 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "run started",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunStarted(context.Background(), 12)
			},
			expectTitle:   "Loom - Run Started",
			expectMessage: "Started dataset run: 12 episodes discovered",
			expectTags:    "loom,convert,started",
		},
		{
			name: "run completed clean",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), 12, 0, 90*time.Second)
			},
			expectTitle:   "Loom - Run Complete",
			expectMessage: "✅ Dataset run complete: 12 episodes encoded in 1m30s",
			expectTags:    "loom,convert,completed",
		},
		{
			name: "run completed with exclusions",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), 10, 2, 5*time.Second)
			},
			expectTitle:   "Loom - Run Complete (with exclusions)",
			expectMessage: "Dataset run complete: 10 encoded, 2 excluded in 5s",
			expectTags:    "loom,convert,completed",
		},
		{
			name: "run failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunFailed(context.Background(), errors.New("dataset dir locked"), "startup")
			},
			expectTitle:    "Loom - Run Failed",
			expectMessage:  "❌ Run failed during startup: dataset dir locked",
			expectTags:     "loom,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := testsupport.NewConfig(t)
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RunStart = false
	cfg.Notifications.RunComplete = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(cfg)
	ctx := context.Background()
	if err := svc.NotifyRunStarted(ctx, 1); err != nil {
		t.Fatalf("disabled run-start event returned %v", err)
	}
	if err := svc.NotifyRunCompleted(ctx, 1, 0, time.Second); err != nil {
		t.Fatalf("disabled run-complete event returned %v", err)
	}
	if err := svc.NotifyRunFailed(ctx, errors.New("boom"), "encode"); err != nil {
		t.Fatalf("disabled error event returned %v", err)
	}
}
