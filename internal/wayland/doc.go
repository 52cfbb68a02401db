// Package wayland owns the compositor connection for the wallpaper
// daemon. It places one surface on the wlr layer shell background layer,
// sized by the compositor to cover the output, and subscribes to the
// foreign toplevel manager so other windows' fullscreen, activated and
// maximized flags can drive playback.
//
// The package links against libwayland-client through cgo. The two wlr
// extension interfaces are carried as hand-written scanner style tables
// in wlr_protocols.c because they live outside the core protocol.
//
// Everything here is single threaded. The daemon's event loop calls
// Flush, DispatchPending and ReadWithTimeout from one goroutine and the
// hooks fire inside those calls. The raw display and surface pointers
// are only ever handed to the GPU presenter, which needs them to build
// its native window surface.
package wayland
