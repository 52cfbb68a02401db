package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vidwall/vidwall/internal/ipc"
)

// fakeDaemon implements ipc.Daemon with recorded state so ctl commands
// can be exercised over a real socket.
type fakeDaemon struct {
	mu     sync.Mutex
	status ipc.StatusResponse

	paused    bool
	muted     bool
	volume    float64
	reloadErr error
	reloads   int
	stops     int
}

func (d *fakeDaemon) Status() (ipc.StatusResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status, nil
}

func (d *fakeDaemon) Pause() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = true
	return d.paused, nil
}

func (d *fakeDaemon) Resume() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
	return d.paused, nil
}

func (d *fakeDaemon) Toggle() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = !d.paused
	return d.paused, nil
}

func (d *fakeDaemon) SetMuted(muted bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = muted
	return d.muted, nil
}

func (d *fakeDaemon) SetVolume(volume float64) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = volume
	return d.volume, nil
}

func (d *fakeDaemon) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reloads++
	return d.reloadErr
}

func (d *fakeDaemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

func (d *fakeDaemon) state() (paused, muted bool, volume float64, reloads, stops int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused, d.muted, d.volume, d.reloads, d.stops
}

// startCtlServer serves the fake daemon on a temp socket and returns
// the socket path.
func startCtlServer(t *testing.T, d ipc.Daemon) string {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "ctl.sock")
	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, socket, d)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return socket
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
