package wayland

/*
#cgo pkg-config: wayland-client
#include <stdlib.h>
#include <wayland-client.h>
#include "wlr_protocols.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	gopointer "github.com/mattn/go-pointer"
	"golang.org/x/sys/unix"

	"github.com/vidwall/vidwall/internal/video"
)

const (
	compositorVersion  = 4
	layerShellVersion  = 4
	toplevelMgrVersion = 3
)

// Hooks receive compositor events. They are invoked on the goroutine that
// calls DispatchPending or AwaitConfigure, never concurrently.
type Hooks struct {
	// OnToplevelState fires every time a tracked toplevel reports its
	// state array. The flags are the decoded array, not a diff.
	OnToplevelState func(id uint32, fullscreen, activated, maximized bool)

	// OnToplevelClosed fires when a tracked toplevel goes away.
	OnToplevelClosed func(id uint32)

	// OnSurfaceClosed fires when the compositor revokes the layer
	// surface, for example because the output was unplugged.
	OnSurfaceClosed func()
}

// Session owns the Wayland connection, the background layer surface and
// the optional foreign toplevel tracking. All methods must be called from
// a single goroutine; the compositor file descriptor is the only thing
// that may be waited on elsewhere.
type Session struct {
	display      *C.struct_wl_display
	registry     *C.struct_wl_proxy
	compositor   *C.struct_wl_proxy
	layerShell   *C.struct_wl_proxy
	toplevelMgr  *C.struct_wl_proxy
	surface      *C.struct_wl_proxy
	layerSurface *C.struct_wl_proxy

	userData unsafe.Pointer

	hooks      Hooks
	size       video.FrameSize
	configured bool
	closed     bool
}

// Connect dials the compositor named by WAYLAND_DISPLAY and binds the
// globals the daemon needs. A compositor without zwlr_layer_shell_v1
// cannot host a wallpaper and is rejected; a missing foreign toplevel
// manager only disables window tracking.
func Connect(hooks Hooks) (*Session, error) {
	display := C.wl_display_connect(nil)
	if display == nil {
		return nil, errors.New("wayland: cannot connect, is WAYLAND_DISPLAY set?")
	}

	s := &Session{display: display, hooks: hooks}
	s.userData = gopointer.Save(s)

	s.registry = C.vidwall_registry_create(display, s.userData)
	if s.registry == nil {
		s.Close()
		return nil, errors.New("wayland: failed to create registry")
	}
	if C.wl_display_roundtrip(display) < 0 {
		s.Close()
		return nil, errors.New("wayland: registry roundtrip failed")
	}

	if s.compositor == nil {
		s.Close()
		return nil, errors.New("wayland: compositor does not advertise wl_compositor")
	}
	if s.layerShell == nil {
		s.Close()
		return nil, errors.New("wayland: compositor lacks zwlr_layer_shell_v1, a wlroots based compositor such as Sway, Hyprland, river or labwc is required")
	}
	if s.toplevelMgr == nil {
		slog.Warn("wayland: compositor lacks zwlr_foreign_toplevel_manager_v1, window state tracking disabled")
	}
	return s, nil
}

// HasToplevelTracking reports whether the compositor exposes foreign
// toplevel management. Without it the pause and mute behaviors tied to
// other windows never trigger.
func (s *Session) HasToplevelTracking() bool {
	return s.toplevelMgr != nil
}

// CreateLayerSurface places a zero sized, fully anchored surface on the
// background layer so the compositor assigns it the whole output. The
// actual dimensions arrive with the first configure event.
func (s *Session) CreateLayerSurface() error {
	surface := C.vidwall_compositor_create_surface(s.compositor)
	if surface == nil {
		return errors.New("wayland: failed to create surface")
	}
	s.surface = surface

	namespace := C.CString("wallpaper")
	defer C.free(unsafe.Pointer(namespace))

	ls := C.vidwall_layer_shell_get_layer_surface(
		s.layerShell, surface,
		C.ZWLR_LAYER_SHELL_V1_LAYER_BACKGROUND, namespace, s.userData)
	if ls == nil {
		return errors.New("wayland: failed to create layer surface")
	}
	s.layerSurface = ls

	anchor := C.uint32_t(C.ZWLR_LAYER_SURFACE_V1_ANCHOR_TOP |
		C.ZWLR_LAYER_SURFACE_V1_ANCHOR_BOTTOM |
		C.ZWLR_LAYER_SURFACE_V1_ANCHOR_LEFT |
		C.ZWLR_LAYER_SURFACE_V1_ANCHOR_RIGHT)
	C.vidwall_layer_surface_set_anchor(ls, anchor)
	C.vidwall_layer_surface_set_size(ls, 0, 0)
	C.vidwall_layer_surface_set_exclusive_zone(ls, -1)
	C.vidwall_layer_surface_set_keyboard_interactivity(
		ls, C.ZWLR_LAYER_SURFACE_V1_KEYBOARD_INTERACTIVITY_NONE)
	C.vidwall_surface_commit(surface)
	return nil
}

// AwaitConfigure blocks until the compositor has sized the layer surface
// and returns the dimensions to render at. Compositors that answer with
// 0x0 leave the choice to the client, which falls back to 1920x1080.
func (s *Session) AwaitConfigure() (video.FrameSize, error) {
	if C.wl_display_roundtrip(s.display) < 0 {
		return video.FrameSize{}, errors.New("wayland: roundtrip failed while waiting for configure")
	}
	if !s.configured {
		return video.FrameSize{}, errors.New("wayland: compositor never configured the layer surface")
	}
	return s.size, nil
}

// Size returns the most recently configured surface size.
func (s *Session) Size() video.FrameSize {
	return s.size
}

// Running reports whether the layer surface is still mapped. It turns
// false once the compositor sends closed.
func (s *Session) Running() bool {
	return !s.closed
}

// Flush writes buffered requests to the compositor socket.
func (s *Session) Flush() {
	C.wl_display_flush(s.display)
}

// DispatchPending delivers queued events to the hooks without reading
// from the socket.
func (s *Session) DispatchPending() error {
	if C.wl_display_dispatch_pending(s.display) < 0 {
		return errors.New("wayland: event dispatch failed")
	}
	return nil
}

// ReadWithTimeout waits up to timeout for compositor traffic and pulls it
// into the event queue. Call DispatchPending afterwards to deliver it.
// A timeout without traffic is not an error; the caller's loop simply
// runs its next tick.
func (s *Session) ReadWithTimeout(timeout time.Duration) error {
	for C.wl_display_prepare_read(s.display) != 0 {
		if C.wl_display_dispatch_pending(s.display) < 0 {
			return errors.New("wayland: event dispatch failed")
		}
	}
	C.wl_display_flush(s.display)

	fds := []unix.PollFd{{Fd: int32(C.wl_display_get_fd(s.display)), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil || n == 0 || fds[0].Revents&unix.POLLIN == 0 {
		C.wl_display_cancel_read(s.display)
		if err != nil && !errors.Is(err, unix.EINTR) {
			return fmt.Errorf("wayland: poll: %w", err)
		}
		return nil
	}

	if C.wl_display_read_events(s.display) < 0 {
		return errors.New("wayland: reading compositor events failed")
	}
	return nil
}

// DisplayPtr exposes the raw wl_display for handing to the GPU surface.
func (s *Session) DisplayPtr() unsafe.Pointer {
	return unsafe.Pointer(s.display)
}

// SurfacePtr exposes the raw wl_surface for handing to the GPU surface.
func (s *Session) SurfacePtr() unsafe.Pointer {
	return unsafe.Pointer(s.surface)
}

// Close tears down every bound object and disconnects. Safe to call more
// than once.
func (s *Session) Close() {
	if s.display == nil {
		return
	}
	if s.layerSurface != nil {
		C.vidwall_layer_surface_destroy(s.layerSurface)
		s.layerSurface = nil
	}
	if s.surface != nil {
		C.vidwall_surface_destroy(s.surface)
		s.surface = nil
	}
	for _, proxy := range []**C.struct_wl_proxy{&s.toplevelMgr, &s.layerShell, &s.compositor, &s.registry} {
		if *proxy != nil {
			C.wl_proxy_destroy(*proxy)
			*proxy = nil
		}
	}
	C.wl_display_flush(s.display)
	C.wl_display_disconnect(s.display)
	s.display = nil
	if s.userData != nil {
		gopointer.Unref(s.userData)
		s.userData = nil
	}
}
