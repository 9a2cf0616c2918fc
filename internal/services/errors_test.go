package services_test

import (
	"errors"
	"strings"
	"testing"

	"loom/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrShardWrite, "dataset", "append", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrShardWrite) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"dataset", "append", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrEmptyEpisode, "loader", "parse", "no usable samples", nil)
	if !errors.Is(err, services.ErrEmptyEpisode) {
		t.Fatalf("expected empty-episode marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "no usable samples") {
		t.Fatalf("expected message in error string %q", err.Error())
	}
}

func TestExclusionReason(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason string
	}{
		{"empty", services.Wrap(services.ErrEmptyEpisode, "loader", "parse", "", nil), "empty episode"},
		{"malformed", services.Wrap(services.ErrMalformedTrace, "loader", "sample", "", nil), "malformed trace"},
		{"shard", services.Wrap(services.ErrShardWrite, "dataset", "append", "", errors.New("io")), "shard write failure"},
		{"plain", errors.New("boom"), "processing failure"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.ExclusionReason(tc.err); got != tc.reason {
				t.Fatalf("expected %q, got %q", tc.reason, got)
			}
		})
	}
}

func TestRecoverable(t *testing.T) {
	if !services.Recoverable(services.Wrap(services.ErrImageDecode, "raster", "decode", "", errors.New("bad jpeg"))) {
		t.Fatal("image decode failures should be recoverable")
	}
	if services.Recoverable(services.Wrap(services.ErrShardWrite, "dataset", "append", "", nil)) {
		t.Fatal("shard write failures should not be recoverable")
	}
}
