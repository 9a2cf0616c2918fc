package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/config"
)

func TestLoadDefaultsExpandPathsAndEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("LOOM_NTFY_TOPIC", "loom-test-topic")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDataset := filepath.Join(tempHome, ".local", "share", "loom", "dataset")
	if cfg.Paths.DatasetDir != wantDataset {
		t.Fatalf("unexpected dataset dir: got %q want %q", cfg.Paths.DatasetDir, wantDataset)
	}
	if cfg.Paths.RecordingsDir != filepath.Join(tempHome, "recordings", "traces") {
		t.Fatalf("unexpected recordings dir: %q", cfg.Paths.RecordingsDir)
	}
	if cfg.Matching.MaxOffsetMS != 500 {
		t.Fatalf("unexpected max offset default: %d", cfg.Matching.MaxOffsetMS)
	}
	if cfg.Matching.SearchRadius != 5 {
		t.Fatalf("unexpected search radius default: %d", cfg.Matching.SearchRadius)
	}
	if cfg.Encoding.ImageSize != 256 {
		t.Fatalf("unexpected image size default: %d", cfg.Encoding.ImageSize)
	}
	if cfg.Encoding.Workers < 1 {
		t.Fatalf("expected workers resolved to at least 1, got %d", cfg.Encoding.Workers)
	}
	if cfg.Collector.Bind != "127.0.0.1:5512" {
		t.Fatalf("unexpected collector bind: %q", cfg.Collector.Bind)
	}
	if cfg.Collector.DataDir != cfg.Paths.ImagesDir {
		t.Fatalf("expected collector data dir to default to images dir, got %q", cfg.Collector.DataDir)
	}
	if cfg.Notifications.NtfyTopic != "loom-test-topic" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DatasetDir, cfg.Paths.LogDir, cfg.Paths.ImagesDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadReadsFileAndValidates(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "loom.toml")
	content := `
[paths]
recordings_dir = "` + filepath.Join(base, "traces") + `"
images_dir = "` + filepath.Join(base, "images") + `"
dataset_dir = "` + filepath.Join(base, "dataset") + `"
log_dir = "` + filepath.Join(base, "logs") + `"

[matching]
max_offset_ms = 250
search_radius = 3

[encoding]
image_size = 128
workers = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Matching.MaxOffsetMS != 250 || cfg.Matching.SearchRadius != 3 {
		t.Fatalf("matching overrides not applied: %+v", cfg.Matching)
	}
	if cfg.Encoding.ImageSize != 128 || cfg.Encoding.Workers != 2 {
		t.Fatalf("encoding overrides not applied: %+v", cfg.Encoding)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantSub string
	}{
		{
			name:    "zero offset",
			mutate:  func(c *config.Config) { c.Matching.MaxOffsetMS = 0 },
			wantSub: "max_offset_ms",
		},
		{
			name:    "tiny raster",
			mutate:  func(c *config.Config) { c.Encoding.ImageSize = 4 },
			wantSub: "image_size",
		},
		{
			name:    "bad bind",
			mutate:  func(c *config.Config) { c.Collector.Bind = "not-an-address" },
			wantSub: "collector.bind",
		},
		{
			name:    "bad log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantSub: "logging.format",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.RecordingsDir = "/tmp/traces"
			cfg.Paths.ImagesDir = "/tmp/images"
			cfg.Paths.DatasetDir = "/tmp/dataset"
			cfg.Encoding.Workers = 2
			cfg.Logging.Format = "console"
			cfg.Logging.Level = "info"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("expected %q in error %q", tc.wantSub, err)
			}
		})
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	for _, key := range []string{"[paths]", "[matching]", "max_offset_ms", "[encoding]", "image_size"} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected sample config to mention %q", key)
		}
	}
}
