package wayland

// Values from the zwlr_foreign_toplevel_handle_v1.state enum. The wire
// format is an array of native endian uint32, one entry per flag that is
// currently set.
const (
	stateMaximized  = 0
	stateMinimized  = 1
	stateActivated  = 2
	stateFullscreen = 3
)

func decodeStateFlags(flags []uint32) (fullscreen, activated, maximized bool) {
	for _, flag := range flags {
		switch flag {
		case stateFullscreen:
			fullscreen = true
		case stateActivated:
			activated = true
		case stateMaximized:
			maximized = true
		}
	}
	return fullscreen, activated, maximized
}
