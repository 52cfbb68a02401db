// Package config loads and validates the daemon configuration file.
package config

import (
	_ "embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Video selects the media source and decode path.
type Video struct {
	// File is the video to loop (absolute path)
	File string `toml:"file"`
	// Software forces the software decode graph
	Software bool `toml:"software"`
	// HardwareOnly disables the automatic software fallback
	HardwareOnly bool `toml:"hardware_only"`
	// FPSCap limits delivered frames per second; 0 leaves the source rate
	FPSCap int `toml:"fps_cap"`
}

// Audio controls the audio branch of the decode graph.
type Audio struct {
	// Enabled makes playback audible; off keeps the audio branch silent
	Enabled bool `toml:"enabled"`
	// Volume is the initial volume in [0,1]
	Volume float64 `toml:"volume"`
}

// Behavior maps window activity onto playback actions.
type Behavior struct {
	// PauseOnFullscreen pauses while a window is fullscreen and focused
	PauseOnFullscreen bool `toml:"pause_on_fullscreen"`
	// PauseOnWindow pauses while a window is focused or maximized
	PauseOnWindow bool `toml:"pause_on_window"`
	// MuteOnWindow mutes while a window is focused or maximized
	MuteOnWindow bool `toml:"mute_on_window"`
	// FallbackGuard refuses software decode above 1920x1080
	FallbackGuard bool `toml:"fallback_guard"`
	// Watch reloads the configuration when the config file changes on disk
	Watch bool `toml:"watch"`
}

// Daemon holds process-level settings.
type Daemon struct {
	// Socket is the control socket path; empty uses the runtime default
	Socket string `toml:"socket"`
}

// Log configures the structured logger.
type Log struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level"`
	// Format is console, json, or auto
	Format string `toml:"format"`
}

// Config is the whole configuration file.
type Config struct {
	Video    Video    `toml:"video"`
	Audio    Audio    `toml:"audio"`
	Behavior Behavior `toml:"behavior"`
	Daemon   Daemon   `toml:"daemon"`
	Log      Log      `toml:"log"`
}

// Load reads the configuration at path. An empty path means the default
// location, and a missing file there yields the defaults; an explicitly
// given path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "vidwall", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("vidwall", "config.toml")
	}
	return filepath.Join(home, ".config", "vidwall", "config.toml")
}

// DefaultSocketPath returns the control socket location.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "vidwall.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("vidwall-%d.sock", os.Getuid()))
}

// DefaultLockPath returns the single-instance lock file location.
func DefaultLockPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "vidwall.lock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("vidwall-%d.lock", os.Getuid()))
}

// Sample returns the annotated sample configuration file.
func Sample() string {
	return sampleConfig
}

// WriteSample writes the sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), fs.FileMode(0o644)); err != nil {
		return fmt.Errorf("config: write sample: %w", err)
	}
	return nil
}
