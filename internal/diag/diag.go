// Package diag implements the environment checks behind the doctor
// command: GStreamer availability, the elements each graph shape needs,
// VA-API support, GPU detection and Wayland session sanity.
package diag

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidwall/vidwall/internal/pipeline"
)

// Check is one environment probe. Required checks gate the doctor exit
// status; optional ones only inform.
type Check struct {
	// Name identifies the check in the rendered table
	Name string
	// Required marks checks the daemon cannot run without
	Required bool
	// Run performs the probe and returns a human readable detail
	Run func() (string, error)
}

// Result is the outcome of one check.
type Result struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail,omitempty"`
}

// RunChecks executes every check in order and reports whether all
// required ones passed.
func RunChecks(checks []Check) ([]Result, bool) {
	results := make([]Result, 0, len(checks))
	ok := true
	for _, c := range checks {
		detail, err := c.Run()
		r := Result{Name: c.Name, Required: c.Required, OK: err == nil, Detail: detail}
		if err != nil {
			r.Detail = err.Error()
			if c.Required {
				ok = false
			}
		}
		slog.Debug("diag: check finished", "name", c.Name, "ok", r.OK, "detail", r.Detail)
		results = append(results, r)
	}
	return results, ok
}

// DefaultChecks is the doctor's check set. The software decode elements
// are required because they are the fallback path; everything VA-API is
// optional since the daemon degrades to software decoding.
func DefaultChecks() []Check {
	checks := []Check{
		{
			Name:     "gstreamer core",
			Required: true,
			Run: func() (string, error) {
				if err := pipeline.CheckGStreamer(); err != nil {
					return "", err
				}
				return "usable", nil
			},
		},
	}

	required := []string{"uridecodebin", "videoscale", "videoconvert", "videorate", "autoaudiosink"}
	for _, name := range required {
		checks = append(checks, elementCheck(name, true))
	}
	checks = append(checks, elementCheck("vapostproc", false))

	checks = append(checks,
		Check{
			Name:     "va-api decoding",
			Required: false,
			Run: func() (string, error) {
				if err := pipeline.CheckHardwareSupport(); err != nil {
					return "", err
				}
				return "available", nil
			},
		},
		Check{
			Name:     "gpu",
			Required: false,
			Run:      func() (string, error) { return gpuDetail(drmRoot) },
		},
		envCheck("WAYLAND_DISPLAY", true),
		runtimeDirCheck(),
	)
	return checks
}

func elementCheck(element string, required bool) Check {
	return Check{
		Name:     "element " + element,
		Required: required,
		Run: func() (string, error) {
			if err := pipeline.CheckElement(element); err != nil {
				return "", err
			}
			return "present", nil
		},
	}
}

const drmRoot = "/sys/class/drm"

// gpuDetail lists the distinct GPU vendors found under the DRM sysfs
// tree.
func gpuDetail(root string) (string, error) {
	vendors, err := gpuVendors(root)
	if err != nil {
		return "", err
	}
	if len(vendors) == 0 {
		return "", fmt.Errorf("no DRM render devices under %s", root)
	}
	return strings.Join(vendors, ", "), nil
}

func gpuVendors(root string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(root, "card*", "device", "vendor"))
	if err != nil {
		return nil, fmt.Errorf("diag: scanning %s: %w", root, err)
	}

	seen := make(map[string]bool)
	var vendors []string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		name := vendorName(strings.TrimSpace(string(data)))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		vendors = append(vendors, name)
	}
	return vendors, nil
}

// vendorName maps a PCI vendor ID to a name; unknown IDs pass through.
func vendorName(id string) string {
	switch strings.ToLower(id) {
	case "0x8086":
		return "Intel"
	case "0x1002", "0x1022":
		return "AMD"
	case "0x10de":
		return "NVIDIA"
	case "0x15ad":
		return "VMware"
	case "0x1af4":
		return "virtio"
	}
	return id
}

func envCheck(name string, required bool) Check {
	return Check{
		Name:     name,
		Required: required,
		Run: func() (string, error) {
			v := os.Getenv(name)
			if v == "" {
				return "", fmt.Errorf("%s is not set, is this a Wayland session?", name)
			}
			return v, nil
		},
	}
}

func runtimeDirCheck() Check {
	return Check{
		Name:     "XDG_RUNTIME_DIR",
		Required: true,
		Run: func() (string, error) {
			dir := os.Getenv("XDG_RUNTIME_DIR")
			if dir == "" {
				return "", fmt.Errorf("XDG_RUNTIME_DIR is not set")
			}
			info, err := os.Stat(dir)
			if err != nil {
				return "", fmt.Errorf("XDG_RUNTIME_DIR: %w", err)
			}
			if !info.IsDir() {
				return "", fmt.Errorf("%s is not a directory", dir)
			}
			return dir, nil
		},
	}
}
