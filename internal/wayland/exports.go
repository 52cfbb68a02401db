package wayland

/*
#include <wayland-client.h>
#include "wlr_protocols.h"
*/
import "C"

import (
	"log/slog"
	"unsafe"

	gopointer "github.com/mattn/go-pointer"

	"github.com/vidwall/vidwall/internal/video"
)

func sessionFrom(data unsafe.Pointer) *Session {
	s, _ := gopointer.Restore(data).(*Session)
	return s
}

func bindVersion(advertised C.uint32_t, supported uint32) C.uint32_t {
	if uint32(advertised) < supported {
		return advertised
	}
	return C.uint32_t(supported)
}

//export vidwallRegistryGlobal
func vidwallRegistryGlobal(data unsafe.Pointer, registry *C.struct_wl_proxy, name C.uint32_t, iface *C.char, version C.uint32_t) {
	s := sessionFrom(data)
	if s == nil {
		return
	}
	switch C.GoString(iface) {
	case "wl_compositor":
		s.compositor = C.vidwall_registry_bind(registry, name,
			&C.wl_compositor_interface, bindVersion(version, compositorVersion))
	case "zwlr_layer_shell_v1":
		s.layerShell = C.vidwall_registry_bind(registry, name,
			&C.zwlr_layer_shell_v1_interface, bindVersion(version, layerShellVersion))
	case "zwlr_foreign_toplevel_manager_v1":
		s.toplevelMgr = C.vidwall_registry_bind(registry, name,
			&C.zwlr_foreign_toplevel_manager_v1_interface, bindVersion(version, toplevelMgrVersion))
		if s.toplevelMgr != nil {
			C.vidwall_toplevel_manager_listen(s.toplevelMgr, data)
		}
	}
}

//export vidwallLayerSurfaceConfigure
func vidwallLayerSurfaceConfigure(data unsafe.Pointer, ls *C.struct_wl_proxy, serial, width, height C.uint32_t) {
	s := sessionFrom(data)
	if s == nil {
		return
	}
	C.vidwall_layer_surface_ack_configure(ls, serial)

	size := video.FrameSize{Width: int(width), Height: int(height)}.OrFallback()
	if s.configured && size != s.size {
		slog.Info("wayland: surface reconfigured", "width", size.Width, "height", size.Height)
	}
	s.size = size
	if s.surface != nil {
		C.vidwall_surface_commit(s.surface)
	}
	s.configured = true
}

//export vidwallLayerSurfaceClosed
func vidwallLayerSurfaceClosed(data unsafe.Pointer, ls *C.struct_wl_proxy) {
	s := sessionFrom(data)
	if s == nil {
		return
	}
	slog.Info("wayland: layer surface closed by compositor")
	s.closed = true
	if s.hooks.OnSurfaceClosed != nil {
		s.hooks.OnSurfaceClosed()
	}
}

//export vidwallToplevelAdded
func vidwallToplevelAdded(data unsafe.Pointer, manager, handle *C.struct_wl_proxy) {
	if sessionFrom(data) == nil {
		return
	}
	C.vidwall_toplevel_handle_listen(handle, data)
}

//export vidwallToplevelFinished
func vidwallToplevelFinished(data unsafe.Pointer, manager *C.struct_wl_proxy) {
	s := sessionFrom(data)
	if s == nil {
		return
	}
	slog.Warn("wayland: toplevel manager finished, window state tracking stopped")
}

//export vidwallToplevelState
func vidwallToplevelState(data unsafe.Pointer, handle *C.struct_wl_proxy, state *C.struct_wl_array) {
	s := sessionFrom(data)
	if s == nil || s.hooks.OnToplevelState == nil {
		return
	}

	var flags []uint32
	if n := int(state.size) / 4; n > 0 {
		flags = unsafe.Slice((*uint32)(state.data), n)
	}
	fullscreen, activated, maximized := decodeStateFlags(flags)
	s.hooks.OnToplevelState(uint32(C.wl_proxy_get_id(handle)), fullscreen, activated, maximized)
}

//export vidwallToplevelClosed
func vidwallToplevelClosed(data unsafe.Pointer, handle *C.struct_wl_proxy) {
	s := sessionFrom(data)
	if s == nil {
		return
	}
	id := uint32(C.wl_proxy_get_id(handle))
	C.vidwall_toplevel_handle_destroy(handle)
	if s.hooks.OnToplevelClosed != nil {
		s.hooks.OnToplevelClosed(id)
	}
}
