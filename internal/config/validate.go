package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateCollector(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.RecordingsDir == "" {
		return errors.New("paths.recordings_dir must be set")
	}
	if c.Paths.ImagesDir == "" {
		return errors.New("paths.images_dir must be set")
	}
	if c.Paths.DatasetDir == "" {
		return errors.New("paths.dataset_dir must be set")
	}
	if c.Paths.DatasetDir == c.Paths.RecordingsDir {
		return errors.New("paths.dataset_dir must differ from paths.recordings_dir")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.MaxOffsetMS == 0 {
		return errors.New("matching.max_offset_ms must be positive; a zero window would reject every real image")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.ImageSize < 16 || c.Encoding.ImageSize > 1024 {
		return fmt.Errorf("encoding.image_size must be between 16 and 1024, got %d", c.Encoding.ImageSize)
	}
	if c.Encoding.Workers < 1 {
		return errors.New("encoding.workers must be at least 1")
	}
	return nil
}

func (c *Config) validateCollector() error {
	if _, _, err := net.SplitHostPort(c.Collector.Bind); err != nil {
		return fmt.Errorf("collector.bind %q is not a host:port address: %w", c.Collector.Bind, err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
