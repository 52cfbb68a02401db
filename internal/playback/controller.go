package playback

// Controller tracks window states and translates them into pause and mute
// edges. All methods must be called from the owning goroutine.
type Controller struct {
	opts Options

	windows map[WindowID]WindowState

	// Saturating hold counters, one per compositor-driven pause source.
	// They track even when the source is disabled in opts so that the
	// decision logic stays a pure function of counters and options.
	fullscreenHolds int
	windowHolds     int

	userPaused bool
	userMuted  bool

	// Last state applied to the transport. Decisions are emitted only on
	// transitions of the desired state against these.
	paused bool
	muted  bool
}

// NewController returns a controller with no tracked windows, unpaused and
// unmuted.
func NewController(opts Options) *Controller {
	return &Controller{
		opts:    opts,
		windows: make(map[WindowID]WindowState),
	}
}

// ObserveWindow records the next state of a window and returns the edges to
// apply. Unknown windows start from the zero state, so a window that
// appears already fullscreen registers its hold on the first observation.
func (c *Controller) ObserveWindow(id WindowID, next WindowState) Decision {
	prev := c.windows[id]
	c.shiftHolds(prev, next)
	c.windows[id] = next
	return c.decide()
}

// CloseWindow retires a window. Any holds it carried are released, exactly
// as if the window had reported its flags cleared before going away.
func (c *Controller) CloseWindow(id WindowID) Decision {
	prev, ok := c.windows[id]
	if !ok {
		return Decision{}
	}
	c.shiftHolds(prev, WindowState{})
	delete(c.windows, id)
	return c.decide()
}

// SetUserPaused sets the explicit pause source and returns the edges to
// apply. Resuming only takes effect once the compositor-driven sources are
// clear as well.
func (c *Controller) SetUserPaused(paused bool) Decision {
	c.userPaused = paused
	return c.decide()
}

// UserPaused reports the explicit pause source.
func (c *Controller) UserPaused() bool {
	return c.userPaused
}

// SetUserMuted sets the explicit mute source and returns the edges to
// apply. Unmuting only takes effect once no active window holds the mute.
func (c *Controller) SetUserMuted(muted bool) Decision {
	c.userMuted = muted
	return c.decide()
}

// UserMuted reports the explicit mute source.
func (c *Controller) UserMuted() bool {
	return c.userMuted
}

// SetOptions swaps the behavior options and returns the edges the change
// itself causes. Tracked windows and hold counters carry over, so
// enabling pause_on_fullscreen while a fullscreen window is up pauses
// immediately.
func (c *Controller) SetOptions(opts Options) Decision {
	c.opts = opts
	return c.decide()
}

// Snapshot returns the current counters and applied state.
func (c *Controller) Snapshot() Status {
	return Status{
		TrackedWindows:  len(c.windows),
		FullscreenHolds: c.fullscreenHolds,
		WindowHolds:     c.windowHolds,
		UserPaused:      c.userPaused,
		UserMuted:       c.userMuted,
		Paused:          c.paused,
		Muted:           c.muted,
	}
}

// shiftHolds moves the hold counters across an edge of the two window
// predicates. Identical states shift nothing.
func (c *Controller) shiftHolds(prev, next WindowState) {
	switch {
	case next.fullscreenActive() && !prev.fullscreenActive():
		c.fullscreenHolds++
	case !next.fullscreenActive() && prev.fullscreenActive():
		if c.fullscreenHolds > 0 {
			c.fullscreenHolds--
		}
	}
	switch {
	case next.activeOrMaximized() && !prev.activeOrMaximized():
		c.windowHolds++
	case !next.activeOrMaximized() && prev.activeOrMaximized():
		if c.windowHolds > 0 {
			c.windowHolds--
		}
	}
}

// decide diffs the desired pause/mute state against what the transport was
// last told and emits the edges, updating the applied state.
func (c *Controller) decide() Decision {
	wantPaused := c.userPaused ||
		(c.opts.PauseOnFullscreen && c.fullscreenHolds > 0) ||
		(c.opts.PauseOnWindow && c.windowHolds > 0)
	wantMuted := c.userMuted ||
		(c.opts.MuteOnWindow && c.windowHolds > 0)

	var d Decision
	if wantPaused && !c.paused {
		d.Pause = true
		c.paused = true
	} else if !wantPaused && c.paused {
		d.Resume = true
		c.paused = false
	}
	if wantMuted && !c.muted {
		d.Mute = true
		c.muted = true
	} else if !wantMuted && c.muted {
		d.Unmute = true
		c.muted = false
	}
	return d
}
