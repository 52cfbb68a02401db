package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vidwall/vidwall/internal/config"
	"github.com/vidwall/vidwall/internal/ipc"
	"github.com/vidwall/vidwall/internal/video"
)

const (
	commandQueueDepth = 16
	enqueueTimeout    = 500 * time.Millisecond
	replyTimeout      = 2 * time.Second
)

type action int

const (
	actStatus action = iota
	actPause
	actResume
	actToggle
	actMute
	actUnmute
	actVolume
	actReload
)

// request is one control command handed to the event loop. reply is nil
// for fire-and-forget submissions like watcher triggered reloads.
type request struct {
	act    action
	volume float64
	reply  chan result
}

type result struct {
	status ipc.StatusResponse
	err    error
}

// drainCommands empties the queue at the current tick boundary. Commands
// never run concurrently with rendering or event dispatch.
func (a *App) drainCommands() {
	for {
		select {
		case req := <-a.cmds:
			res := a.handle(req)
			if req.reply != nil {
				req.reply <- res
			}
		default:
			return
		}
	}
}

func (a *App) handle(req request) result {
	switch req.act {
	case actStatus:
		// nothing to change
	case actPause:
		a.applyDecision(a.controller.SetUserPaused(true))
	case actResume:
		a.applyDecision(a.controller.SetUserPaused(false))
	case actToggle:
		a.applyDecision(a.controller.SetUserPaused(!a.controller.UserPaused()))
	case actMute:
		a.applyDecision(a.controller.SetUserMuted(true))
	case actUnmute:
		a.applyDecision(a.controller.SetUserMuted(false))
	case actVolume:
		v := video.ClampVolume(req.volume)
		if err := a.source.SetVolume(v); err != nil {
			return result{status: a.status(), err: err}
		}
		a.volume = v
	case actReload:
		if err := a.reloadConfig(); err != nil {
			slog.Warn("app: reload failed, keeping previous configuration", "error", err)
			return result{status: a.status(), err: err}
		}
	}
	return result{status: a.status()}
}

func (a *App) status() ipc.StatusResponse {
	snap := a.controller.Snapshot()
	return ipc.StatusResponse{
		InstanceID:      a.instanceID,
		PID:             os.Getpid(),
		Version:         a.version,
		UptimeSeconds:   int64(time.Since(a.startedAt).Seconds()),
		File:            a.cfg.Video.File,
		Width:           a.size.Width,
		Height:          a.size.Height,
		Hardware:        a.hardware,
		FPSCap:          a.cfg.Video.FPSCap,
		Paused:          snap.Paused,
		Muted:           snap.Muted,
		UserPaused:      snap.UserPaused,
		AudioEnabled:    a.cfg.Audio.Enabled,
		Volume:          a.volume,
		TrackedWindows:  snap.TrackedWindows,
		FullscreenHolds: snap.FullscreenHolds,
		WindowHolds:     snap.WindowHolds,
	}
}

// submit queues a command for the loop and waits for its reply.
func (a *App) submit(req request) (ipc.StatusResponse, error) {
	req.reply = make(chan result, 1)
	select {
	case a.cmds <- req:
	case <-a.stopCtx.Done():
		return ipc.StatusResponse{}, errors.New("daemon is shutting down")
	case <-time.After(enqueueTimeout):
		return ipc.StatusResponse{}, errors.New("daemon is busy")
	}
	select {
	case res := <-req.reply:
		return res.status, res.err
	case <-a.stopCtx.Done():
		return ipc.StatusResponse{}, errors.New("daemon is shutting down")
	case <-time.After(replyTimeout):
		return ipc.StatusResponse{}, errors.New("daemon did not answer in time")
	}
}

// requestReload queues a reload without waiting. Used by the config
// watcher.
func (a *App) requestReload() {
	select {
	case a.cmds <- request{act: actReload}:
	default:
		slog.Warn("app: command queue full, dropping reload")
	}
}

// reloadConfig rereads the config file and applies what changed. The
// decode graph is rebuilt only when its options changed; a bare volume
// change adjusts the running graph. Failures leave the previous state
// untouched.
func (a *App) reloadConfig() error {
	if a.cfgPath == "" {
		return errors.New("app: started without a config file, nothing to reload")
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(true); err != nil {
		return err
	}

	hardware, err := selectDecodeMode(cfg)
	if err != nil {
		return err
	}
	if err := checkFallbackGuard(cfg, hardware, a.size); err != nil {
		return err
	}
	opts, err := decodeOptions(cfg, a.size, hardware)
	if err != nil {
		return err
	}

	volumeOnly := opts
	volumeOnly.Volume = a.decodeOpts.Volume
	if volumeOnly == a.decodeOpts {
		if opts.Volume != a.decodeOpts.Volume {
			if err := a.source.SetVolume(opts.Volume); err != nil {
				return err
			}
			a.decodeOpts.Volume = opts.Volume
			a.volume = opts.Volume
		}
	} else {
		source, builtOpts, err := a.buildSource(cfg, opts)
		if err != nil {
			return fmt.Errorf("app: rebuilding pipeline: %w", err)
		}
		old := a.source
		a.source = source
		old.Close()
		a.decodeOpts = builtOpts
		a.hardware = builtOpts.Hardware
		a.volume = cfg.Audio.Volume

		// The fresh graph starts playing and unmuted; reimpose whatever
		// the controller currently holds.
		snap := a.controller.Snapshot()
		if snap.Paused {
			if err := a.source.SetPaused(true); err != nil {
				slog.Warn("app: pausing reloaded pipeline failed", "error", err)
			}
		}
		if snap.Muted {
			if err := a.source.SetMuted(true); err != nil {
				slog.Warn("app: muting reloaded pipeline failed", "error", err)
			}
		}
	}

	a.applyDecision(a.controller.SetOptions(controllerOptions(cfg)))
	a.cfg = cfg
	slog.Info("app: configuration reloaded", "file", cfg.Video.File, "hardware", a.hardware)
	return nil
}

// Remote adapts the command queue to the control socket service.
type Remote struct {
	app *App
}

// Status implements ipc.Daemon.
func (r *Remote) Status() (ipc.StatusResponse, error) {
	return r.app.submit(request{act: actStatus})
}

// Pause implements ipc.Daemon.
func (r *Remote) Pause() (bool, error) {
	st, err := r.app.submit(request{act: actPause})
	return st.Paused, err
}

// Resume implements ipc.Daemon.
func (r *Remote) Resume() (bool, error) {
	st, err := r.app.submit(request{act: actResume})
	return st.Paused, err
}

// Toggle implements ipc.Daemon.
func (r *Remote) Toggle() (bool, error) {
	st, err := r.app.submit(request{act: actToggle})
	return st.Paused, err
}

// SetMuted implements ipc.Daemon.
func (r *Remote) SetMuted(muted bool) (bool, error) {
	act := actUnmute
	if muted {
		act = actMute
	}
	st, err := r.app.submit(request{act: act})
	return st.Muted, err
}

// SetVolume implements ipc.Daemon.
func (r *Remote) SetVolume(volume float64) (float64, error) {
	st, err := r.app.submit(request{act: actVolume, volume: volume})
	return st.Volume, err
}

// Reload implements ipc.Daemon.
func (r *Remote) Reload() error {
	_, err := r.app.submit(request{act: actReload})
	return err
}

// Stop implements ipc.Daemon. It returns immediately; the loop notices
// on its next tick.
func (r *Remote) Stop() error {
	r.app.stop()
	return nil
}
