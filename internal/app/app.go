// Package app assembles the daemon: the Wayland session, the GPU
// presenter, the decode graph and the playback controller, driven by a
// single event loop that also drains control socket commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/vidwall/vidwall/internal/config"
	"github.com/vidwall/vidwall/internal/ipc"
	"github.com/vidwall/vidwall/internal/pipeline"
	"github.com/vidwall/vidwall/internal/playback"
	"github.com/vidwall/vidwall/internal/render"
	"github.com/vidwall/vidwall/internal/video"
	"github.com/vidwall/vidwall/internal/wayland"
)

// tickWait bounds how long one loop iteration blocks on the compositor
// socket. It doubles as the render cadence ceiling while frames flow.
const tickWait = 8 * time.Millisecond

// FrameSource is the slice of the decode graph the loop drives.
type FrameSource interface {
	playback.Transport
	WithLatestFrame(fn func(video.Frame) error) (bool, error)
	PollBus() error
	SetVolume(volume float64) error
	Close()
}

// Compositor is the slice of the Wayland session the loop drives.
type Compositor interface {
	Flush()
	DispatchPending() error
	ReadWithTimeout(timeout time.Duration) error
	Running() bool
}

// Renderer paints decoded frames onto the wallpaper surface.
type Renderer interface {
	Upload(frame video.Frame) error
	RenderOnce() error
}

// Options carries what Bootstrap needs from the command line layer.
type Options struct {
	// Config is the merged, validated configuration
	Config *config.Config
	// ConfigPath is the file Config was loaded from, empty when the
	// configuration came from defaults and flags only
	ConfigPath string
	// Version is the build version reported over the control socket
	Version string
}

// App is one running wallpaper instance.
type App struct {
	cfg        *config.Config
	cfgPath    string
	version    string
	instanceID string
	startedAt  time.Time

	source     FrameSource
	comp       Compositor
	renderer   Renderer
	controller *playback.Controller

	newSource  func(video.DecodeOptions) (FrameSource, error)
	decodeOpts video.DecodeOptions
	hardware   bool
	size       video.FrameSize
	volume     float64

	cmds    chan request
	stopCtx context.Context
	stop    context.CancelFunc

	session   *wayland.Session
	presenter *render.Presenter
	ipcServer *ipc.Server
	lock      *flock.Flock
}

// Bootstrap performs the whole startup dance in the order the pieces
// depend on each other: instance lock, compositor connection, layer
// surface and its configure roundtrip, GPU presenter at the configured
// size, then the decode graph, and finally the control socket.
func Bootstrap(opts Options) (*App, error) {
	cfg := opts.Config

	a := &App{
		cfg:        cfg,
		cfgPath:    opts.ConfigPath,
		version:    opts.Version,
		instanceID: uuid.NewString(),
		startedAt:  time.Now(),
		controller: playback.NewController(controllerOptions(cfg)),
		volume:     cfg.Audio.Volume,
		cmds:       make(chan request, commandQueueDepth),
	}
	a.stopCtx, a.stop = context.WithCancel(context.Background())
	a.newSource = func(o video.DecodeOptions) (FrameSource, error) {
		g, err := pipeline.New(o)
		if err != nil {
			return nil, err
		}
		return g, nil
	}

	lock := flock.New(config.DefaultLockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("app: acquiring instance lock: %w", err)
	}
	if !locked {
		return nil, errors.New("app: another instance is already running, use vidwall ctl to control it")
	}
	a.lock = lock

	session, err := wayland.Connect(wayland.Hooks{
		OnToplevelState: func(id uint32, fullscreen, activated, maximized bool) {
			a.applyDecision(a.controller.ObserveWindow(playback.WindowID(id), playback.WindowState{
				Fullscreen: fullscreen,
				Activated:  activated,
				Maximized:  maximized,
			}))
		},
		OnToplevelClosed: func(id uint32) {
			a.applyDecision(a.controller.CloseWindow(playback.WindowID(id)))
		},
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.session = session
	a.comp = session

	wantsTracking := cfg.Behavior.PauseOnFullscreen || cfg.Behavior.PauseOnWindow || cfg.Behavior.MuteOnWindow
	if wantsTracking && !session.HasToplevelTracking() {
		slog.Warn("app: window driven pause and mute will never trigger on this compositor")
	}

	if err := session.CreateLayerSurface(); err != nil {
		a.Close()
		return nil, err
	}
	size, err := session.AwaitConfigure()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.size = size
	slog.Info("app: wallpaper surface configured", "width", size.Width, "height", size.Height)

	hardware, err := selectDecodeMode(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.hardware = hardware
	if err := checkFallbackGuard(cfg, hardware, size); err != nil {
		a.Close()
		return nil, err
	}

	presenter, err := render.New(session.DisplayPtr(), session.SurfacePtr(), size)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.presenter = presenter
	a.renderer = presenter

	decodeOpts, err := decodeOptions(cfg, size, hardware)
	if err != nil {
		a.Close()
		return nil, err
	}
	source, builtOpts, err := a.buildSource(cfg, decodeOpts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.source = source
	a.decodeOpts = builtOpts
	a.hardware = builtOpts.Hardware

	server, err := ipc.NewServer(a.stopCtx, cfg.SocketPath(), &Remote{app: a})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ipcServer = server

	return a, nil
}

// Run drives the event loop until the context is canceled, a stop
// arrives over the control socket, the compositor closes the surface, or
// playback fails.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.ipcServer != nil {
		a.ipcServer.Serve()
	}
	if a.cfg.Behavior.Watch && a.cfgPath != "" {
		go a.watchConfig(runCtx, a.cfgPath)
	}

	slog.Info("app: running",
		"instance_id", a.instanceID,
		"file", a.cfg.Video.File,
		"hardware", a.hardware)

	for {
		if runCtx.Err() != nil || a.stopCtx.Err() != nil {
			slog.Info("app: shutting down")
			return nil
		}

		if _, err := a.source.WithLatestFrame(a.present); err != nil {
			return fmt.Errorf("app: presenting frame: %w", err)
		}
		if err := a.source.PollBus(); err != nil {
			return err
		}

		a.drainCommands()

		a.comp.Flush()
		if err := a.comp.DispatchPending(); err != nil {
			return err
		}
		if !a.comp.Running() {
			slog.Info("app: layer surface gone, exiting")
			return nil
		}
		if runCtx.Err() != nil || a.stopCtx.Err() != nil {
			slog.Info("app: shutting down")
			return nil
		}

		if err := a.comp.ReadWithTimeout(tickWait); err != nil {
			return err
		}
		if err := a.comp.DispatchPending(); err != nil {
			return err
		}
		if !a.comp.Running() {
			slog.Info("app: layer surface gone, exiting")
			return nil
		}
	}
}

// Close releases everything Bootstrap acquired, in reverse dependency
// order. Safe on a partially bootstrapped app and safe to call twice.
func (a *App) Close() {
	a.stop()
	if a.ipcServer != nil {
		a.ipcServer.Close()
		a.ipcServer = nil
	}
	if a.source != nil {
		a.source.Close()
		a.source = nil
	}
	if a.presenter != nil {
		a.presenter.Close()
		a.presenter = nil
		a.renderer = nil
	}
	if a.session != nil {
		a.session.Close()
		a.session = nil
		a.comp = nil
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			slog.Warn("app: releasing instance lock failed", "error", err)
		}
		a.lock = nil
	}
}

func (a *App) present(frame video.Frame) error {
	if err := a.renderer.Upload(frame); err != nil {
		return err
	}
	return a.renderer.RenderOnce()
}

// applyDecision pushes controller edges into the decode graph. Transport
// failures are logged rather than fatal; the controller state already
// advanced and the next edge retries the state change.
func (a *App) applyDecision(d playback.Decision) {
	if d.Empty() {
		return
	}
	slog.Debug("app: playback edge",
		"pause", d.Pause, "resume", d.Resume, "mute", d.Mute, "unmute", d.Unmute)
	if err := d.Apply(a.source); err != nil {
		slog.Warn("app: applying playback change failed", "error", err)
	}
}

// selectDecodeMode decides between hardware and software decoding from
// the configuration and a VA-API probe. Probe failure falls back to
// software unless hardware was explicitly required.
func selectDecodeMode(cfg *config.Config) (bool, error) {
	if cfg.Video.Software {
		return false, nil
	}
	if err := pipeline.CheckHardwareSupport(); err != nil {
		if cfg.Video.HardwareOnly {
			return false, fmt.Errorf("app: hardware decoding required but unavailable: %w", err)
		}
		slog.Warn("app: hardware decoding unavailable, falling back to software", "reason", err)
		return false, nil
	}
	return true, nil
}

// buildSource constructs the decode graph. The probe can miss problems
// that only surface while the hardware graph is assembled, so a failed
// hardware build retries once with the software shape unless hardware
// was explicitly required. The software shape must build or the call
// fails.
func (a *App) buildSource(cfg *config.Config, opts video.DecodeOptions) (FrameSource, video.DecodeOptions, error) {
	source, err := a.newSource(opts)
	if err == nil {
		return source, opts, nil
	}
	if !opts.Hardware || cfg.Video.HardwareOnly {
		return nil, opts, err
	}

	slog.Warn("app: hardware pipeline failed, retrying with software decoding", "error", err)
	opts.Hardware = false
	if err := checkFallbackGuard(cfg, false, opts.Size); err != nil {
		return nil, opts, err
	}
	source, err = a.newSource(opts)
	if err != nil {
		return nil, opts, err
	}
	return source, opts, nil
}

// checkFallbackGuard refuses software decoding above 1080p unless the
// guard was disabled. Software scaling at 4K pins a CPU core for a
// wallpaper, which is rarely what anyone wants.
func checkFallbackGuard(cfg *config.Config, hardware bool, size video.FrameSize) error {
	if hardware || !cfg.Behavior.FallbackGuard {
		return nil
	}
	if size.Pixels() > video.FHDPixels {
		return fmt.Errorf("app: refusing software decoding at %s, pass --no-fallback-guard or set behavior.fallback_guard = false to override", size)
	}
	return nil
}

func controllerOptions(cfg *config.Config) playback.Options {
	return playback.Options{
		PauseOnFullscreen: cfg.Behavior.PauseOnFullscreen,
		PauseOnWindow:     cfg.Behavior.PauseOnWindow,
		MuteOnWindow:      cfg.Behavior.MuteOnWindow,
	}
}

func decodeOptions(cfg *config.Config, size video.FrameSize, hardware bool) (video.DecodeOptions, error) {
	uri, err := fileURI(cfg.Video.File)
	if err != nil {
		return video.DecodeOptions{}, err
	}
	return video.DecodeOptions{
		URI:          uri,
		Size:         size,
		FPSCap:       cfg.Video.FPSCap,
		Hardware:     hardware,
		AudioEnabled: cfg.Audio.Enabled,
		Volume:       cfg.Audio.Volume,
	}, nil
}

// fileURI turns a local path into the percent encoded file URI
// uridecodebin expects.
func fileURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("app: resolving %q: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("app: video file: %w", err)
	}
	u := url.URL{Scheme: "file", Path: abs}
	return u.String(), nil
}
