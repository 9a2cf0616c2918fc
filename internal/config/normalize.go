package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

const maxAutoWorkers = 8

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeEncoding()
	if err := c.normalizeCollector(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.RecordingsDir, err = expandPath(c.Paths.RecordingsDir); err != nil {
		return fmt.Errorf("paths.recordings_dir: %w", err)
	}
	if c.Paths.ImagesDir, err = expandPath(c.Paths.ImagesDir); err != nil {
		return fmt.Errorf("paths.images_dir: %w", err)
	}
	if c.Paths.DatasetDir, err = expandPath(c.Paths.DatasetDir); err != nil {
		return fmt.Errorf("paths.dataset_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatching() {
	if c.Matching.MaxOffsetMS < 0 {
		c.Matching.MaxOffsetMS = defaultMaxOffsetMS
	}
	if c.Matching.SearchRadius < 0 {
		c.Matching.SearchRadius = defaultSearchRadius
	}
	if c.Matching.MinEpisodeSteps < 0 {
		c.Matching.MinEpisodeSteps = defaultMinEpisodeSteps
	}
}

func (c *Config) normalizeEncoding() {
	if c.Encoding.ImageSize <= 0 {
		c.Encoding.ImageSize = defaultImageSize
	}
	if c.Encoding.Workers <= 0 {
		workers := runtime.NumCPU()
		if workers > maxAutoWorkers {
			workers = maxAutoWorkers
		}
		c.Encoding.Workers = workers
	}
	if c.Encoding.MaxEpisodesPerShard <= 0 {
		c.Encoding.MaxEpisodesPerShard = defaultMaxEpisodesPerShard
	}
	c.Encoding.DatasetName = strings.TrimSpace(c.Encoding.DatasetName)
	if c.Encoding.DatasetName == "" {
		c.Encoding.DatasetName = defaultDatasetName
	}
}

func (c *Config) normalizeCollector() error {
	c.Collector.Bind = strings.TrimSpace(c.Collector.Bind)
	if c.Collector.Bind == "" {
		c.Collector.Bind = defaultCollectorBind
	}
	if c.Collector.MaxUploadMB <= 0 {
		c.Collector.MaxUploadMB = defaultMaxUploadMB
	}
	// Uploads land in the images tree unless a dedicated directory is set, so
	// a collector and converter pair works without extra wiring.
	c.Collector.DataDir = strings.TrimSpace(c.Collector.DataDir)
	if c.Collector.DataDir == "" {
		c.Collector.DataDir = c.Paths.ImagesDir
		return nil
	}
	expanded, err := expandPath(c.Collector.DataDir)
	if err != nil {
		return fmt.Errorf("collector.data_dir: %w", err)
	}
	c.Collector.DataDir = expanded
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("LOOM_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
