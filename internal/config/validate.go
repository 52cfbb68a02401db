package config

import (
	"fmt"
	"strings"
)

// Validate reports the first problem that would make the daemon misbehave.
// The video file is only required for running the daemon, so callers that
// merely inspect configuration pass requireFile=false.
func (c *Config) Validate(requireFile bool) error {
	if requireFile && strings.TrimSpace(c.Video.File) == "" {
		return fmt.Errorf("config: video.file is required")
	}
	if c.Video.FPSCap < 0 {
		return fmt.Errorf("config: video.fps_cap must not be negative, got %d", c.Video.FPSCap)
	}
	if c.Video.Software && c.Video.HardwareOnly {
		return fmt.Errorf("config: video.software and video.hardware_only are mutually exclusive")
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("config: audio.volume must be within [0,1], got %g", c.Audio.Volume)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

// SocketPath returns the configured control socket, or the runtime default.
func (c *Config) SocketPath() string {
	if c.Daemon.Socket != "" {
		return c.Daemon.Socket
	}
	return DefaultSocketPath()
}
