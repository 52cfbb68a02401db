// Package playback decides when wallpaper playback should pause, resume,
// mute, or unmute in response to window activity reported by the compositor.
//
// The controller is a pure state machine. It holds the last known state of
// every tracked toplevel window, derives two predicates per window
// (fullscreen-and-activated, activated-or-maximized), and counts how many
// windows currently hold each predicate. Pause sources are:
//
//   - fullscreen: at least one window is fullscreen and activated
//   - window: at least one window is activated or maximized
//   - user: an explicit pause request over the control socket
//
// Playback pauses while any enabled source is held and resumes only when
// every source has cleared. Muting works the same way with its own two
// sources, the window predicate and an explicit user mute, and is
// independent of pausing, so audio can mute while video keeps playing and
// vice versa.
//
// Each observation returns a Decision carrying only the edges to apply:
// repeating the same window state produces an empty Decision, and a pause
// is emitted exactly once no matter how many windows pile onto a source.
// The caller forwards decisions to a Transport (the decode graph in
// production, a fake in tests).
//
// The controller is not safe for concurrent use. The event loop owns it and
// feeds it from a single goroutine.
package playback
