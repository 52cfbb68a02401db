package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vidwall/vidwall/internal/config"
	"github.com/vidwall/vidwall/internal/playback"
	"github.com/vidwall/vidwall/internal/video"
)

// recorder collects call labels across the fakes so tick ordering can be
// asserted.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, label)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeSource struct {
	rec *recorder

	mu     sync.Mutex
	frames []video.Frame
	busErr error
	paused bool
	muted  bool
	volume float64
	closed bool
}

func (f *fakeSource) WithLatestFrame(fn func(video.Frame) error) (bool, error) {
	if f.rec != nil {
		f.rec.add("frame")
	}
	f.mu.Lock()
	if len(f.frames) == 0 {
		f.mu.Unlock()
		return false, nil
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	f.mu.Unlock()
	if err := fn(frame); err != nil {
		return true, err
	}
	return true, nil
}

func (f *fakeSource) PollBus() error {
	if f.rec != nil {
		f.rec.add("bus")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busErr
}

func (f *fakeSource) SetPaused(paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = paused
	return nil
}

func (f *fakeSource) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
	return nil
}

func (f *fakeSource) SetVolume(volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = volume
	return nil
}

func (f *fakeSource) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSource) state() (paused, muted, closed bool, volume float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused, f.muted, f.closed, f.volume
}

type fakeComp struct {
	rec *recorder

	mu        sync.Mutex
	reads     int
	stopAfter int
}

func (c *fakeComp) Flush() {
	c.rec.add("flush")
}

func (c *fakeComp) DispatchPending() error {
	c.rec.add("dispatch")
	return nil
}

func (c *fakeComp) ReadWithTimeout(timeout time.Duration) error {
	c.rec.add("read")
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	time.Sleep(time.Millisecond)
	return nil
}

func (c *fakeComp) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads < c.stopAfter
}

type fakeRenderer struct {
	mu        sync.Mutex
	uploads   int
	renders   int
	uploadErr error
}

func (r *fakeRenderer) Upload(frame video.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.uploadErr != nil {
		return r.uploadErr
	}
	r.uploads++
	return nil
}

func (r *fakeRenderer) RenderOnce() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders++
	return nil
}

func (r *fakeRenderer) counts() (uploads, renders int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploads, r.renders
}

func newTestApp(src *fakeSource, comp *fakeComp, rend *fakeRenderer) *App {
	a := &App{
		cfg:        config.Default(),
		version:    "test",
		instanceID: "test-instance",
		startedAt:  time.Now(),
		controller: playback.NewController(playback.Options{PauseOnFullscreen: true}),
		source:     src,
		comp:       comp,
		renderer:   rend,
		size:       video.FrameSize{Width: 1920, Height: 1080},
		volume:     1,
		cmds:       make(chan request, commandQueueDepth),
	}
	a.stopCtx, a.stop = context.WithCancel(context.Background())
	return a
}

func TestRunTickOrder(t *testing.T) {
	rec := &recorder{}
	src := &fakeSource{rec: rec}
	comp := &fakeComp{rec: rec, stopAfter: 1}
	a := newTestApp(src, comp, &fakeRenderer{})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"frame", "bus", "flush", "dispatch", "read", "dispatch"}
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestRunStopsOnDecodeError(t *testing.T) {
	rec := &recorder{}
	busErr := errors.New("decoder exploded")
	src := &fakeSource{rec: rec, busErr: busErr}
	comp := &fakeComp{rec: rec, stopAfter: 100}
	a := newTestApp(src, comp, &fakeRenderer{})

	err := a.Run(context.Background())
	if !errors.Is(err, busErr) {
		t.Fatalf("Run() error = %v, want the bus error", err)
	}
	for _, call := range rec.snapshot() {
		if call == "flush" {
			t.Fatal("loop kept going after a decode error")
		}
	}
}

func TestRunRendersFramesInOrder(t *testing.T) {
	rec := &recorder{}
	frame := video.Frame{Data: make([]byte, 16), Width: 2, Height: 2}
	src := &fakeSource{rec: rec, frames: []video.Frame{frame, frame}}
	comp := &fakeComp{rec: rec, stopAfter: 3}
	rend := &fakeRenderer{}
	a := newTestApp(src, comp, rend)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	uploads, renders := rend.counts()
	if uploads != 2 || renders != 2 {
		t.Errorf("uploads/renders = %d/%d, want 2/2", uploads, renders)
	}
}

func TestRunFailsOnRenderError(t *testing.T) {
	uploadErr := errors.New("gpu gone")
	src := &fakeSource{frames: []video.Frame{{Data: make([]byte, 4), Width: 1, Height: 1}}}
	comp := &fakeComp{rec: &recorder{}, stopAfter: 100}
	a := newTestApp(src, comp, &fakeRenderer{uploadErr: uploadErr})

	if err := a.Run(context.Background()); !errors.Is(err, uploadErr) {
		t.Fatalf("Run() error = %v, want the upload error", err)
	}
}

func TestRunHonorsExternalCancel(t *testing.T) {
	rec := &recorder{}
	src := &fakeSource{rec: rec}
	comp := &fakeComp{rec: rec, stopAfter: 1 << 30}
	a := newTestApp(src, comp, &fakeRenderer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("canceled run still ticked: %v", calls)
	}
}

func TestRemoteCommands(t *testing.T) {
	src := &fakeSource{rec: &recorder{}}
	comp := &fakeComp{rec: &recorder{}, stopAfter: 1 << 30}
	a := newTestApp(src, comp, &fakeRenderer{})
	remote := &Remote{app: a}

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	status, err := remote.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.InstanceID != "test-instance" || status.Paused {
		t.Errorf("fresh status = %+v", status)
	}

	paused, err := remote.Pause()
	if err != nil || !paused {
		t.Fatalf("Pause() = %v, %v, want true, nil", paused, err)
	}
	if p, _, _, _ := src.state(); !p {
		t.Error("pipeline not paused after Pause()")
	}

	paused, err = remote.Toggle()
	if err != nil || paused {
		t.Fatalf("Toggle() = %v, %v, want false, nil", paused, err)
	}

	muted, err := remote.SetMuted(true)
	if err != nil || !muted {
		t.Fatalf("SetMuted(true) = %v, %v, want true, nil", muted, err)
	}
	if _, m, _, _ := src.state(); !m {
		t.Error("pipeline not muted after SetMuted(true)")
	}

	volume, err := remote.SetVolume(0.25)
	if err != nil || volume != 0.25 {
		t.Fatalf("SetVolume(0.25) = %v, %v, want 0.25, nil", volume, err)
	}
	volume, err = remote.SetVolume(7)
	if err != nil || volume != 1 {
		t.Fatalf("SetVolume(7) = %v, %v, want clamped 1, nil", volume, err)
	}

	if err := remote.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() after Stop() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after Stop()")
	}
}

func writeConfigFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func touchVideo(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "loop.mp4")
	if err := os.WriteFile(path, []byte("not really mp4"), 0o644); err != nil {
		t.Fatalf("writing video stub: %v", err)
	}
	return path
}

func TestReloadWithoutConfigFile(t *testing.T) {
	a := newTestApp(&fakeSource{}, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	a.cfgPath = ""

	res := a.handle(request{act: actReload})
	if res.err == nil {
		t.Fatal("reload without a config file should fail")
	}
}

func TestReloadSwapsPipeline(t *testing.T) {
	dir := t.TempDir()
	videoPath := touchVideo(t, dir)
	cfgPath := writeConfigFile(t, dir, fmt.Sprintf(`
[video]
file = %q
software = true
`, videoPath))

	oldSrc := &fakeSource{}
	newSrc := &fakeSource{}
	a := newTestApp(oldSrc, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	a.cfgPath = cfgPath
	a.decodeOpts = video.DecodeOptions{
		URI:    "file:///previous.mp4",
		Size:   a.size,
		Volume: 1,
	}

	var gotOpts video.DecodeOptions
	factoryCalls := 0
	a.newSource = func(o video.DecodeOptions) (FrameSource, error) {
		factoryCalls++
		gotOpts = o
		return newSrc, nil
	}

	// Pause first so the reloaded pipeline must be re-paused.
	a.handle(request{act: actPause})

	res := a.handle(request{act: actReload})
	if res.err != nil {
		t.Fatalf("reload error = %v", res.err)
	}
	if factoryCalls != 1 {
		t.Fatalf("pipeline factory called %d times, want 1", factoryCalls)
	}
	if !strings.Contains(gotOpts.URI, "loop.mp4") {
		t.Errorf("new pipeline URI = %q, want the configured file", gotOpts.URI)
	}
	if gotOpts.Hardware {
		t.Error("software = true config still selected hardware decoding")
	}
	if _, _, closed, _ := oldSrc.state(); !closed {
		t.Error("previous pipeline was not closed")
	}
	if p, _, _, _ := newSrc.state(); !p {
		t.Error("reloaded pipeline did not inherit the pause")
	}
	if a.cfg.Video.File != videoPath {
		t.Errorf("config not swapped, file = %q", a.cfg.Video.File)
	}
}

func TestReloadVolumeChangeOnly(t *testing.T) {
	dir := t.TempDir()
	videoPath := touchVideo(t, dir)
	cfgPath := writeConfigFile(t, dir, fmt.Sprintf(`
[video]
file = %q
software = true

[audio]
enabled = true
volume = 0.3
`, videoPath))

	src := &fakeSource{}
	a := newTestApp(src, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	a.cfgPath = cfgPath

	uri, err := fileURI(videoPath)
	if err != nil {
		t.Fatalf("fileURI() error = %v", err)
	}
	a.decodeOpts = video.DecodeOptions{
		URI:          uri,
		Size:         a.size,
		AudioEnabled: true,
		Volume:       1,
	}
	a.newSource = func(o video.DecodeOptions) (FrameSource, error) {
		t.Fatal("volume-only reload rebuilt the pipeline")
		return nil, nil
	}

	res := a.handle(request{act: actReload})
	if res.err != nil {
		t.Fatalf("reload error = %v", res.err)
	}
	if _, _, _, v := src.state(); v != 0.3 {
		t.Errorf("volume = %v, want 0.3 applied in place", v)
	}
	if a.volume != 0.3 {
		t.Errorf("app volume = %v, want 0.3", a.volume)
	}
}

func TestReloadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	videoPath := touchVideo(t, dir)
	cfgPath := writeConfigFile(t, dir, fmt.Sprintf(`
[video]
file = %q
fps_cap = -5
`, videoPath))

	a := newTestApp(&fakeSource{}, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	a.cfgPath = cfgPath
	a.newSource = func(o video.DecodeOptions) (FrameSource, error) {
		t.Fatal("invalid config reached the pipeline factory")
		return nil, nil
	}

	res := a.handle(request{act: actReload})
	if res.err == nil {
		t.Fatal("invalid config accepted")
	}
}

func TestRequestReloadDropsWhenQueueFull(t *testing.T) {
	a := newTestApp(&fakeSource{}, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	for i := 0; i < commandQueueDepth; i++ {
		a.cmds <- request{act: actStatus}
	}
	a.requestReload()
	if len(a.cmds) != commandQueueDepth {
		t.Errorf("queue length = %d, want %d", len(a.cmds), commandQueueDepth)
	}
}

func TestSubmitTimesOutWhenQueueFull(t *testing.T) {
	a := newTestApp(&fakeSource{}, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	for i := 0; i < commandQueueDepth; i++ {
		a.cmds <- request{act: actStatus}
	}

	start := time.Now()
	_, err := a.submit(request{act: actStatus})
	if err == nil || !strings.Contains(err.Error(), "busy") {
		t.Fatalf("submit() error = %v, want daemon busy", err)
	}
	if time.Since(start) < enqueueTimeout {
		t.Error("submit() returned before the enqueue timeout elapsed")
	}
}

func TestSubmitAfterStop(t *testing.T) {
	a := newTestApp(&fakeSource{}, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	a.stop()

	_, err := a.submit(request{act: actStatus})
	if err == nil || !strings.Contains(err.Error(), "shutting down") {
		t.Fatalf("submit() error = %v, want shutting down", err)
	}
}

func TestWatchDebounce(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[video]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := newTestApp(&fakeSource{}, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.watchConfig(ctx, cfgPath)
	}()

	// Let the watch install before touching the file.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		body := fmt.Sprintf("[video]\nfps_cap = %d\n", i)
		if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case req := <-a.cmds:
		if req.act != actReload {
			t.Fatalf("queued act = %v, want reload", req.act)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("config writes never produced a reload request")
	}

	select {
	case <-a.cmds:
		t.Fatal("write burst produced more than one reload request")
	case <-time.After(watchDebounce + 200*time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}

func TestFileURI(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(plain, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	uri, err := fileURI(plain)
	if err != nil {
		t.Fatalf("fileURI() error = %v", err)
	}
	if !strings.HasPrefix(uri, "file:///") {
		t.Errorf("uri = %q, want file:/// prefix", uri)
	}

	spaced := filepath.Join(dir, "my video.mp4")
	if err := os.WriteFile(spaced, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	uri, err = fileURI(spaced)
	if err != nil {
		t.Fatalf("fileURI() error = %v", err)
	}
	if !strings.Contains(uri, "my%20video.mp4") {
		t.Errorf("uri = %q, want percent encoded space", uri)
	}

	if _, err := fileURI(filepath.Join(dir, "missing.mp4")); err == nil {
		t.Error("fileURI() on a missing file should fail")
	}
}

func TestCheckFallbackGuard(t *testing.T) {
	fhd := video.FrameSize{Width: 1920, Height: 1080}
	fourK := video.FrameSize{Width: 3840, Height: 2160}

	guarded := config.Default()
	guarded.Behavior.FallbackGuard = true
	unguarded := config.Default()
	unguarded.Behavior.FallbackGuard = false

	tests := []struct {
		name     string
		cfg      *config.Config
		hardware bool
		size     video.FrameSize
		wantErr  bool
	}{
		{"hardware bypasses guard", guarded, true, fourK, false},
		{"guard off bypasses", unguarded, false, fourK, false},
		{"software at 1080p allowed", guarded, false, fhd, false},
		{"software above 1080p refused", guarded, false, fourK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkFallbackGuard(tt.cfg, tt.hardware, tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkFallbackGuard() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildSourceFallsBackToSoftware(t *testing.T) {
	a := newTestApp(&fakeSource{}, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	var attempts []bool
	a.newSource = func(o video.DecodeOptions) (FrameSource, error) {
		attempts = append(attempts, o.Hardware)
		if o.Hardware {
			return nil, errors.New("vapostproc refused to link")
		}
		return &fakeSource{}, nil
	}

	opts := video.DecodeOptions{
		URI:      "file:///videos/loop.mp4",
		Size:     video.FrameSize{Width: 1920, Height: 1080},
		Hardware: true,
	}
	source, built, err := a.buildSource(config.Default(), opts)
	if err != nil {
		t.Fatalf("buildSource() error = %v", err)
	}
	if source == nil {
		t.Fatal("buildSource() returned no source")
	}
	if built.Hardware {
		t.Error("fallback build still reports hardware")
	}
	if len(attempts) != 2 || !attempts[0] || attempts[1] {
		t.Errorf("build attempts = %v, want [true false]", attempts)
	}
}

func TestBuildSourceHardwareOnlyIsFatal(t *testing.T) {
	cfg := config.Default()
	cfg.Video.HardwareOnly = true

	a := newTestApp(&fakeSource{}, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	attempts := 0
	a.newSource = func(o video.DecodeOptions) (FrameSource, error) {
		attempts++
		return nil, errors.New("vapostproc refused to link")
	}

	opts := video.DecodeOptions{
		URI:      "file:///videos/loop.mp4",
		Size:     video.FrameSize{Width: 1920, Height: 1080},
		Hardware: true,
	}
	if _, _, err := a.buildSource(cfg, opts); err == nil {
		t.Fatal("hardware_only build failure did not error")
	}
	if attempts != 1 {
		t.Errorf("build attempts = %d, want 1 (no software retry)", attempts)
	}
}

func TestBuildSourceGuardBlocksFallback(t *testing.T) {
	a := newTestApp(&fakeSource{}, &fakeComp{rec: &recorder{}}, &fakeRenderer{})
	a.newSource = func(o video.DecodeOptions) (FrameSource, error) {
		if o.Hardware {
			return nil, errors.New("vapostproc refused to link")
		}
		t.Fatal("guard should veto the software retry before it builds")
		return nil, nil
	}

	opts := video.DecodeOptions{
		URI:      "file:///videos/loop.mp4",
		Size:     video.FrameSize{Width: 3840, Height: 2160},
		Hardware: true,
	}
	_, _, err := a.buildSource(config.Default(), opts)
	if err == nil || !strings.Contains(err.Error(), "refusing software decoding") {
		t.Fatalf("buildSource() error = %v, want guard refusal", err)
	}
}
