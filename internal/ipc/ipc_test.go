package ipc

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

type fakeDaemon struct {
	paused  bool
	muted   bool
	volume  float64
	reloads int
	stops   int

	pauseErr error
}

func (d *fakeDaemon) Status() (StatusResponse, error) {
	return StatusResponse{
		InstanceID:   "test-instance",
		PID:          4242,
		File:         "/videos/loop.mp4",
		Width:        1920,
		Height:       1080,
		Hardware:     true,
		Paused:       d.paused,
		Muted:        d.muted,
		AudioEnabled: true,
		Volume:       d.volume,
	}, nil
}

func (d *fakeDaemon) Pause() (bool, error) {
	if d.pauseErr != nil {
		return false, d.pauseErr
	}
	d.paused = true
	return d.paused, nil
}

func (d *fakeDaemon) Resume() (bool, error) {
	d.paused = false
	return d.paused, nil
}

func (d *fakeDaemon) Toggle() (bool, error) {
	d.paused = !d.paused
	return d.paused, nil
}

func (d *fakeDaemon) SetMuted(muted bool) (bool, error) {
	d.muted = muted
	return d.muted, nil
}

func (d *fakeDaemon) SetVolume(volume float64) (float64, error) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	d.volume = volume
	return d.volume, nil
}

func (d *fakeDaemon) Reload() error {
	d.reloads++
	return nil
}

func (d *fakeDaemon) Stop() error {
	d.stops++
	return nil
}

func startServer(t *testing.T, daemon Daemon) (string, *Client) {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "ctl.sock")

	server, err := NewServer(context.Background(), socket, daemon)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := Dial(socket)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return socket, client
}

func TestStatusRoundTrip(t *testing.T) {
	daemon := &fakeDaemon{volume: 0.8}
	_, client := startServer(t, daemon)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.InstanceID != "test-instance" {
		t.Errorf("InstanceID = %q, want test-instance", status.InstanceID)
	}
	if status.File != "/videos/loop.mp4" {
		t.Errorf("File = %q, want /videos/loop.mp4", status.File)
	}
	if status.Width != 1920 || status.Height != 1080 {
		t.Errorf("size = %dx%d, want 1920x1080", status.Width, status.Height)
	}
	if !status.Hardware || !status.AudioEnabled {
		t.Errorf("Hardware = %v, AudioEnabled = %v, want both true", status.Hardware, status.AudioEnabled)
	}
	if status.Volume != 0.8 {
		t.Errorf("Volume = %v, want 0.8", status.Volume)
	}
}

func TestPauseResumeToggle(t *testing.T) {
	daemon := &fakeDaemon{}
	_, client := startServer(t, daemon)

	pause, err := client.Pause()
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if !pause.Paused {
		t.Error("Pause() reported not paused")
	}

	resume, err := client.Resume()
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if resume.Paused {
		t.Error("Resume() reported still paused")
	}

	toggle, err := client.Toggle()
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !toggle.Paused {
		t.Error("Toggle() from resumed should pause")
	}
	toggle, err = client.Toggle()
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if toggle.Paused {
		t.Error("second Toggle() should resume")
	}
}

func TestMuteAndVolume(t *testing.T) {
	daemon := &fakeDaemon{volume: 1.0}
	_, client := startServer(t, daemon)

	mute, err := client.Mute()
	if err != nil {
		t.Fatalf("Mute() error = %v", err)
	}
	if !mute.Muted {
		t.Error("Mute() reported unmuted")
	}

	unmute, err := client.Unmute()
	if err != nil {
		t.Fatalf("Unmute() error = %v", err)
	}
	if unmute.Muted {
		t.Error("Unmute() reported muted")
	}

	vol, err := client.SetVolume(2.5)
	if err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	if vol.Volume != 1.0 {
		t.Errorf("SetVolume(2.5) applied %v, want clamped 1.0", vol.Volume)
	}
}

func TestReloadAndStop(t *testing.T) {
	daemon := &fakeDaemon{}
	_, client := startServer(t, daemon)

	reload, err := client.Reload()
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if !reload.Accepted {
		t.Errorf("Reload() not accepted: %s", reload.Message)
	}
	if daemon.reloads != 1 {
		t.Errorf("daemon saw %d reloads, want 1", daemon.reloads)
	}

	stop, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !stop.Stopping {
		t.Error("Stop() did not report stopping")
	}
	if daemon.stops != 1 {
		t.Errorf("daemon saw %d stops, want 1", daemon.stops)
	}
}

func TestDaemonErrorsReachClient(t *testing.T) {
	daemon := &fakeDaemon{pauseErr: errors.New("pipeline wedged")}
	_, client := startServer(t, daemon)

	if _, err := client.Pause(); err == nil {
		t.Fatal("Pause() should surface the daemon error")
	}
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(context.Background(), "/tmp/x.sock", nil); err == nil {
		t.Error("NewServer(nil daemon) should fail")
	}
	if _, err := NewServer(context.Background(), "", &fakeDaemon{}); err == nil {
		t.Error("NewServer(empty path) should fail")
	}
}

func TestDialMissingSocket(t *testing.T) {
	if _, err := Dial(filepath.Join(t.TempDir(), "absent.sock")); err == nil {
		t.Error("Dial() on a missing socket should fail")
	}
}

func TestServerReplacesStaleSocket(t *testing.T) {
	daemon := &fakeDaemon{}
	socket, client := startServer(t, daemon)
	client.Close()

	// A second server over the same path must clear the stale file.
	server, err := NewServer(context.Background(), socket, daemon)
	if err != nil {
		t.Fatalf("NewServer() over stale socket error = %v", err)
	}
	server.Close()
}
