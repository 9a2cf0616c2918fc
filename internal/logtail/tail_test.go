package logtail_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"loom/internal/logtail"
)

func TestLastLinesKeepsTrailingWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logtail.LastLines(path, 2)
	if err != nil {
		t.Fatalf("last lines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset == 0 {
		t.Fatal("expected offset to advance")
	}
}

func TestLastLinesMissingFile(t *testing.T) {
	lines, offset, err := logtail.LastLines(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("last lines: %v", err)
	}
	if len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %#v at %d", lines, offset)
	}
}

func TestFollowStreamsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logtail.LastLines(path, 1)
	if err != nil {
		t.Fatalf("last lines: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- logtail.Follow(ctx, path, offset, func(line string) { got <- line })
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case line := <-got:
		if line != "later" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not deliver appended line")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not stop after cancel")
	}
}

func TestFollowRestartsAfterTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.log")
	if err := os.WriteFile(path, []byte("old line one\nold line two\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logtail.LastLines(path, 10)
	if err != nil {
		t.Fatalf("last lines: %v", err)
	}

	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("truncate log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan string, 4)
	go func() {
		_ = logtail.Follow(ctx, path, offset, func(line string) { got <- line })
	}()

	select {
	case line := <-got:
		if line != "fresh" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not re-read truncated file")
	}
}
