package testsupport

import (
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RecordingsDir = filepath.Join(base, "recordings")
	cfgVal.Paths.ImagesDir = filepath.Join(base, "images")
	cfgVal.Paths.DatasetDir = filepath.Join(base, "dataset")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Collector.Bind = "127.0.0.1:0"
	cfgVal.Collector.DataDir = cfgVal.Paths.ImagesDir
	cfgVal.Encoding.ImageSize = 16
	cfgVal.Encoding.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithImageSize overrides the raster edge on the test config.
func WithImageSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.ImageSize = size
	}
}

// WithMaxOffsetMS overrides the match acceptance gate on the test config.
func WithMaxOffsetMS(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.MaxOffsetMS = ms
	}
}

// WithMinEpisodeSteps overrides the short-episode filter on the test config.
func WithMinEpisodeSteps(steps int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.MinEpisodeSteps = steps
	}
}

// WithMaxEpisodesPerShard overrides shard rotation on the test config.
func WithMaxEpisodesPerShard(count int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.MaxEpisodesPerShard = count
	}
}

// WithWorkers overrides the worker count on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.Workers = workers
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RecordingsDir)
}
