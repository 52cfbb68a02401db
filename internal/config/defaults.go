package config

// Default returns the configuration used when no file is present. Playback
// pauses for fullscreen windows only, audio stays off, and the software
// guard is armed.
func Default() *Config {
	return &Config{
		Video: Video{
			FPSCap: 0,
		},
		Audio: Audio{
			Enabled: false,
			Volume:  1.0,
		},
		Behavior: Behavior{
			PauseOnFullscreen: true,
			PauseOnWindow:     false,
			MuteOnWindow:      false,
			FallbackGuard:     true,
			Watch:             false,
		},
		Log: Log{
			Level:  "info",
			Format: "auto",
		},
	}
}
