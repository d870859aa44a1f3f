package config

const (
	defaultConfigPath           = "~/.config/soundboard/config.toml"
	defaultAddr                 = "127.0.0.1:8787"
	defaultMaxUploadMB          = 25
	defaultShutdownTimeout      = 10
	defaultDBPath               = "~/.local/share/soundboard/soundboard.db"
	defaultTTLDays              = 365
	defaultBusyTimeoutMS        = 5000
	defaultSynchronous          = "NORMAL"
	defaultPurgeIntervalMinutes = 60
	defaultWidget               = "simulated"
	defaultAudio                = "speaker"
	defaultMountID              = "yt-iframe-api"
	defaultNoticeSeconds        = 4
	defaultSampleRate           = 44100
	defaultIframeAPIURL         = "https://www.youtube.com/iframe_api"
	defaultSessionHours         = 24
	defaultLoginPerMinute       = 10
	defaultCacheMinutes         = 5
	defaultLogLevel             = "info"
	defaultLogFormat            = "auto"
)

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	return Config{
		Server: Server{
			Addr:                   defaultAddr,
			MaxUploadMB:            defaultMaxUploadMB,
			ShutdownTimeoutSeconds: defaultShutdownTimeout,
		},
		Storage: Storage{
			Path:                 defaultDBPath,
			TTLDays:              defaultTTLDays,
			BusyTimeoutMS:        defaultBusyTimeoutMS,
			Synchronous:          defaultSynchronous,
			PurgeIntervalMinutes: defaultPurgeIntervalMinutes,
		},
		Playback: Playback{
			Widget:        defaultWidget,
			Audio:         defaultAudio,
			MountID:       defaultMountID,
			NoticeSeconds: defaultNoticeSeconds,
			SampleRate:    defaultSampleRate,
			Headless:      true,
			IframeAPIURL:  defaultIframeAPIURL,
			Transcode:     true,
		},
		Auth: Auth{
			SessionHours:   defaultSessionHours,
			LoginPerMinute: defaultLoginPerMinute,
			CacheMinutes:   defaultCacheMinutes,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
