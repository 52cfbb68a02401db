package playback

// WindowID identifies one toplevel window for the lifetime of its handle.
// The Wayland layer derives it from the protocol object id.
type WindowID uint32

// WindowState is the last reported state of one toplevel window.
type WindowState struct {
	// Fullscreen is set while the window occupies a whole output
	Fullscreen bool
	// Activated is set while the window holds focus
	Activated bool
	// Maximized is set while the window is maximized
	Maximized bool
}

// fullscreenActive is the fullscreen pause predicate: a fullscreen window
// only hides the wallpaper when it is also the focused window.
func (s WindowState) fullscreenActive() bool {
	return s.Fullscreen && s.Activated
}

// activeOrMaximized is the window pause/mute predicate.
func (s WindowState) activeOrMaximized() bool {
	return s.Activated || s.Maximized
}

// Options selects which sources may pause playback and whether window
// activity mutes audio.
type Options struct {
	// PauseOnFullscreen pauses while any window is fullscreen and activated
	PauseOnFullscreen bool
	// PauseOnWindow pauses while any window is activated or maximized
	PauseOnWindow bool
	// MuteOnWindow mutes audio while any window is activated or maximized
	MuteOnWindow bool
}

// Decision carries the transport edges produced by one controller step.
// At most one of Pause/Resume and one of Mute/Unmute is set. The zero
// Decision means nothing changed.
type Decision struct {
	Pause  bool
	Resume bool
	Mute   bool
	Unmute bool
}

// Empty reports whether the decision carries no action.
func (d Decision) Empty() bool {
	return !d.Pause && !d.Resume && !d.Mute && !d.Unmute
}

// Status is a point-in-time snapshot of the controller for the control
// socket.
type Status struct {
	// TrackedWindows is the number of toplevels currently known
	TrackedWindows int
	// FullscreenHolds is the number of windows holding the fullscreen source
	FullscreenHolds int
	// WindowHolds is the number of windows holding the window source
	WindowHolds int
	// UserPaused reports the explicit pause source
	UserPaused bool
	// UserMuted reports the explicit mute source
	UserMuted bool
	// Paused reports what the transport was last told
	Paused bool
	// Muted reports what the transport was last told
	Muted bool
}
