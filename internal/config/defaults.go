package config

const (
	defaultRecordingsDir       = "~/recordings/traces"
	defaultImagesDir           = "~/recordings/images"
	defaultDatasetDir          = "~/.local/share/loom/dataset"
	defaultLogDir              = "~/.local/share/loom/logs"
	defaultMaxOffsetMS         = 500
	defaultSearchRadius        = 5
	defaultMinEpisodeSteps     = 0
	defaultImageSize           = 256
	defaultMaxEpisodesPerShard = 64
	defaultDatasetName         = "loom_episodes"
	defaultCollectorBind       = "127.0.0.1:5512"
	defaultMaxUploadMB         = 16
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RecordingsDir: defaultRecordingsDir,
			ImagesDir:     defaultImagesDir,
			DatasetDir:    defaultDatasetDir,
			LogDir:        defaultLogDir,
		},
		Matching: Matching{
			MaxOffsetMS:     defaultMaxOffsetMS,
			SearchRadius:    defaultSearchRadius,
			MinEpisodeSteps: defaultMinEpisodeSteps,
		},
		Encoding: Encoding{
			ImageSize:           defaultImageSize,
			Workers:             0, // resolved to a CPU-derived count during normalization
			MaxEpisodesPerShard: defaultMaxEpisodesPerShard,
			DatasetName:         defaultDatasetName,
		},
		Collector: Collector{
			Bind:        defaultCollectorBind,
			MaxUploadMB: defaultMaxUploadMB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunStart:       true,
			RunComplete:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
