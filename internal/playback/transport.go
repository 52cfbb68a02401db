package playback

// Transport is the playback surface a Decision acts on. The decode graph
// implements it in production; tests substitute a recorder.
type Transport interface {
	// SetPaused freezes or resumes media delivery
	SetPaused(paused bool) error
	// SetMuted silences or restores the audio branch
	SetMuted(muted bool) error
}

// Apply forwards the decision's edges to the transport. The first transport
// error is returned; a pause edge that fails still prevents the mute edge
// from being skipped, since the two channels are independent.
func (d Decision) Apply(t Transport) error {
	var firstErr error
	if d.Pause {
		firstErr = t.SetPaused(true)
	} else if d.Resume {
		firstErr = t.SetPaused(false)
	}
	if d.Mute {
		if err := t.SetMuted(true); err != nil && firstErr == nil {
			firstErr = err
		}
	} else if d.Unmute {
		if err := t.SetMuted(false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
