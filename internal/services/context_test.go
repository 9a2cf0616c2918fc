package services_test

import (
	"context"
	"testing"

	"loom/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEpisodeID(ctx, "20250722155656")
	ctx = services.WithStage(ctx, "match")
	ctx = services.WithRunID(ctx, "run-123")

	if id, ok := services.EpisodeIDFromContext(ctx); !ok || id != "20250722155656" {
		t.Fatalf("episode id round trip failed: %q %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "match" {
		t.Fatalf("stage round trip failed: %q %v", stage, ok)
	}
	if run, ok := services.RunIDFromContext(ctx); !ok || run != "run-123" {
		t.Fatalf("run id round trip failed: %q %v", run, ok)
	}
}

func TestContextEmptyValuesIgnored(t *testing.T) {
	ctx := services.WithEpisodeID(context.Background(), "")
	if _, ok := services.EpisodeIDFromContext(ctx); ok {
		t.Fatal("empty episode id should not be stored")
	}
	if _, ok := services.StageFromContext(context.Background()); ok {
		t.Fatal("missing stage should not be reported")
	}
}
