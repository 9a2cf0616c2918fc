package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "loom", "config.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample config: %v", err)
	}
	requireContains(t, string(data), "[paths]")
	requireContains(t, string(data), "recordings_dir")

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil {
		t.Fatal("expected error when config already exists")
	}
	requireContains(t, err.Error(), "already exists")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowCommand(t *testing.T) {
	cfg, configPath := setupCLIConfig(t)

	stdout, _, err := runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, stdout, "Config path: "+configPath)
	requireContains(t, stdout, cfg.Paths.RecordingsDir)
	requireContains(t, stdout, "max_offset_ms")
}
