package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sys/unix"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for recordings, images, and output.
type Paths struct {
	RecordingsDir string `toml:"recordings_dir"`
	ImagesDir     string `toml:"images_dir"`
	DatasetDir    string `toml:"dataset_dir"`
	LogDir        string `toml:"log_dir"`
}

// Matching contains tuning knobs for the trace-image distribution matcher.
type Matching struct {
	MaxOffsetMS     int `toml:"max_offset_ms"`
	SearchRadius    int `toml:"search_radius"`
	MinEpisodeSteps int `toml:"min_episode_steps"`
}

// Encoding contains settings for episode encoding and shard layout.
type Encoding struct {
	ImageSize           int    `toml:"image_size"`
	Workers             int    `toml:"workers"`
	MaxEpisodesPerShard int    `toml:"max_episodes_per_shard"`
	DatasetName         string `toml:"dataset_name"`
}

// Collector contains settings for the capture collector service.
type Collector struct {
	Bind        string `toml:"bind"`
	DataDir     string `toml:"data_dir"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStart       bool   `toml:"run_start"`
	RunComplete    bool   `toml:"run_complete"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Loom.
//
// Configuration sections by subsystem:
//   - Paths: recordings, image, dataset, and log directories
//   - Matching: distribution matcher thresholds and episode filters
//   - Encoding: raster geometry, worker count, shard sizing
//   - Collector: capture collector bind address and storage
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Matching      Matching      `toml:"matching"`
	Encoding      Encoding      `toml:"encoding"`
	Collector     Collector     `toml:"collector"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/loom/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("loom.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline and collector write
// to and verifies they are usable. RecordingsDir is created on a best-effort
// basis so a converter pointed at external storage can still load config
// while the volume is offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DatasetDir, c.Paths.LogDir, c.Paths.ImagesDir} {
		if err := ensureWritableDir(dir); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.Paths.RecordingsDir) != "" {
		_ = os.MkdirAll(c.Paths.RecordingsDir, 0o755)
	}
	if strings.TrimSpace(c.Collector.DataDir) != "" {
		if err := ensureWritableDir(c.Collector.DataDir); err != nil {
			return err
		}
	}
	return nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("directory %q has insufficient permissions: %w", dir, err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
