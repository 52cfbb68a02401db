// Package ipc exposes daemon control via JSON-RPC over a Unix domain
// socket and the matching client used by the ctl subcommand.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
)

// Daemon is the control surface the running wallpaper hands to the IPC
// server. Implementations must be safe to call from RPC goroutines.
type Daemon interface {
	Status() (StatusResponse, error)
	Pause() (bool, error)
	Resume() (bool, error)
	Toggle() (bool, error)
	SetMuted(muted bool) (bool, error)
	SetVolume(volume float64) (float64, error)
	Reload() error
	Stop() error
}

// Server accepts control connections for a running daemon.
type Server struct {
	path      string
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer binds the control socket and registers the service. Any
// stale socket file at path is removed first.
func NewServer(ctx context.Context, path string, d Daemon) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc: server requires a daemon")
	}
	if path == "" {
		return nil, errors.New("ipc: server requires a socket path")
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("ipc: remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Vidwall", &service{daemon: d}); err != nil {
		listener.Close()
		return nil, fmt.Errorf("ipc: register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve accepts connections until Close is called.
func (s *Server) Serve() {
	slog.Debug("ipc: listening", "socket", s.path)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				slog.Warn("ipc: accept failed", "error", err)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops accepting, waits for in-flight calls and removes the
// socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		slog.Warn("ipc: failed to remove socket", "socket", s.path, "error", err)
	}
}

type service struct {
	daemon Daemon
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status, err := s.daemon.Status()
	if err != nil {
		return err
	}
	*resp = status
	return nil
}

func (s *service) Pause(_ PauseRequest, resp *PauseResponse) error {
	paused, err := s.daemon.Pause()
	if err != nil {
		return err
	}
	resp.Paused = paused
	slog.Info("ipc: pause requested")
	return nil
}

func (s *service) Resume(_ ResumeRequest, resp *ResumeResponse) error {
	paused, err := s.daemon.Resume()
	if err != nil {
		return err
	}
	resp.Paused = paused
	slog.Info("ipc: resume requested")
	return nil
}

func (s *service) Toggle(_ ToggleRequest, resp *ToggleResponse) error {
	paused, err := s.daemon.Toggle()
	if err != nil {
		return err
	}
	resp.Paused = paused
	slog.Info("ipc: toggle requested", "paused", paused)
	return nil
}

func (s *service) Mute(_ MuteRequest, resp *MuteResponse) error {
	muted, err := s.daemon.SetMuted(true)
	if err != nil {
		return err
	}
	resp.Muted = muted
	slog.Info("ipc: mute requested")
	return nil
}

func (s *service) Unmute(_ UnmuteRequest, resp *UnmuteResponse) error {
	muted, err := s.daemon.SetMuted(false)
	if err != nil {
		return err
	}
	resp.Muted = muted
	slog.Info("ipc: unmute requested")
	return nil
}

func (s *service) SetVolume(req SetVolumeRequest, resp *SetVolumeResponse) error {
	applied, err := s.daemon.SetVolume(req.Volume)
	if err != nil {
		return err
	}
	resp.Volume = applied
	slog.Info("ipc: volume change requested", "volume", applied)
	return nil
}

func (s *service) Reload(_ ReloadRequest, resp *ReloadResponse) error {
	if err := s.daemon.Reload(); err != nil {
		resp.Accepted = false
		resp.Message = err.Error()
		return nil
	}
	resp.Accepted = true
	resp.Message = "reload scheduled"
	slog.Info("ipc: reload requested")
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	if err := s.daemon.Stop(); err != nil {
		return err
	}
	resp.Stopping = true
	slog.Info("ipc: stop requested")
	return nil
}
