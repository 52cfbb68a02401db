package ipc

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse is a point in time snapshot of the running wallpaper.
type StatusResponse struct {
	InstanceID      string  `json:"instance_id"`
	PID             int     `json:"pid"`
	Version         string  `json:"version"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	File            string  `json:"file"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Hardware        bool    `json:"hardware"`
	FPSCap          int     `json:"fps_cap"`
	Paused          bool    `json:"paused"`
	Muted           bool    `json:"muted"`
	UserPaused      bool    `json:"user_paused"`
	AudioEnabled    bool    `json:"audio_enabled"`
	Volume          float64 `json:"volume"`
	TrackedWindows  int     `json:"tracked_windows"`
	FullscreenHolds int     `json:"fullscreen_holds"`
	WindowHolds     int     `json:"window_holds"`
}

// PauseRequest asks for a user pause.
type PauseRequest struct{}

// PauseResponse reports the resulting pause state.
type PauseResponse struct {
	Paused bool `json:"paused"`
}

// ResumeRequest clears the user pause.
type ResumeRequest struct{}

// ResumeResponse reports the resulting pause state. Paused can remain
// true when a fullscreen or active window still holds playback.
type ResumeResponse struct {
	Paused bool `json:"paused"`
}

// ToggleRequest flips the user pause.
type ToggleRequest struct{}

// ToggleResponse reports the resulting pause state.
type ToggleResponse struct {
	Paused bool `json:"paused"`
}

// MuteRequest silences audio.
type MuteRequest struct{}

// MuteResponse reports the resulting mute state.
type MuteResponse struct {
	Muted bool `json:"muted"`
}

// UnmuteRequest restores audio.
type UnmuteRequest struct{}

// UnmuteResponse reports the resulting mute state.
type UnmuteResponse struct {
	Muted bool `json:"muted"`
}

// SetVolumeRequest adjusts playback volume in the range 0 to 1.
type SetVolumeRequest struct {
	Volume float64 `json:"volume"`
}

// SetVolumeResponse echoes the clamped volume actually applied.
type SetVolumeResponse struct {
	Volume float64 `json:"volume"`
}

// ReloadRequest asks the daemon to reread its config file and restart
// playback with the new settings.
type ReloadRequest struct{}

// ReloadResponse indicates the reload was accepted.
type ReloadResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// StopRequest shuts the daemon down.
type StopRequest struct{}

// StopResponse indicates shutdown has begun.
type StopResponse struct {
	Stopping bool `json:"stopping"`
}
