package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/vidwall/vidwall/internal/video"
)

const (
	// frameQueueBuffers bounds the explicit queues to two decoded frames.
	frameQueueBuffers = 2
	// internalQueueBytes clamps queues uridecodebin creates internally.
	internalQueueBytes = 20 * 1024 * 1024
	// softwareReadahead caps uridecodebin's own source buffering on the
	// software path, where decoded frames are expensive to hold.
	softwareReadahead = 2 * 1024 * 1024
)

// DecodeGraph owns one GStreamer pipeline decoding the wallpaper video to
// BGRA frames. The audio branch is always present so the graph keeps a
// proper clock source; with audio disabled its volume sits at zero.
type DecodeGraph struct {
	pipeline *gst.Pipeline
	bus      *gst.Bus
	appsink  *app.Sink

	// Dynamic uridecodebin pads are routed to these branch entries.
	videoEntry *gst.Element
	audioEntry *gst.Element
	volume     *gst.Element

	opts   video.DecodeOptions
	paused bool

	// Single-slot mailbox between the streaming thread and the event loop.
	// The newest sample always wins; an unread predecessor is dropped.
	mu     sync.Mutex
	latest *gst.Sample
}

// New builds the graph for the given options and sets it playing.
func New(opts video.DecodeOptions) (*DecodeGraph, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// Safe to call multiple times.
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("pipeline: create pipeline: %w", err)
	}

	g := &DecodeGraph{pipeline: pipeline, opts: opts}

	src, err := gst.NewElement("uridecodebin")
	if err != nil {
		return nil, fmt.Errorf("pipeline: create uridecodebin: %w", err)
	}
	src.SetProperty("uri", opts.URI)
	if !opts.Hardware {
		src.SetProperty("buffer-size", softwareReadahead)
	}
	if err := pipeline.AddMany(src); err != nil {
		return nil, fmt.Errorf("pipeline: add uridecodebin: %w", err)
	}

	if err := g.buildVideoBranch(); err != nil {
		return nil, err
	}
	if err := g.buildAudioBranch(); err != nil {
		return nil, err
	}

	src.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		g.wirePad(srcPad)
	})

	// Connected after the static elements are in place, so only elements
	// uridecodebin creates from here on are clamped.
	pipeline.Connect("deep-element-added", func(_ *gst.Bin, _ *gst.Bin, elem *gst.Element) {
		clampInternalQueue(elem)
	})

	g.appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: g.onNewSample,
	})

	g.bus = pipeline.GetPipelineBus()

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		g.Close()
		return nil, fmt.Errorf("pipeline: start playback: %w", err)
	}

	slog.Info("pipeline: decode graph playing",
		"uri", opts.URI,
		"size", opts.Size.String(),
		"hardware", opts.Hardware,
		"audio", opts.AudioEnabled,
		"fps_cap", opts.FPSCap,
	)

	return g, nil
}

// buildVideoBranch creates and links the video tail the dynamic pad will be
// routed into.
func (g *DecodeGraph) buildVideoBranch() error {
	queue, err := gst.NewElement("queue")
	if err != nil {
		return fmt.Errorf("pipeline: create video queue: %w", err)
	}
	queue.SetProperty("name", "video-buffer")
	queue.SetProperty("max-size-buffers", frameQueueBuffers)
	queue.SetProperty("max-size-bytes", 0)
	queue.SetProperty("max-size-time", uint64(0))

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return fmt.Errorf("pipeline: create videorate: %w", err)
	}
	// Only ever drop frames; duplicating would defeat the fps cap.
	videorate.SetProperty("drop-only", true)
	videorate.SetProperty("skip-to-first", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return fmt.Errorf("pipeline: create capsfilter: %w", err)
	}
	capsStr := buildVideoCaps(g.opts.Size.Width, g.opts.Size.Height, g.opts.FPSCap)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("pipeline: create appsink: %w", err)
	}
	// Two buffers with drop gives freshest-frame delivery; sync keeps the
	// image frozen while the pipeline is paused.
	appsink.SetProperty("sync", true)
	appsink.SetProperty("max-buffers", frameQueueBuffers)
	appsink.SetProperty("drop", true)

	var chain []*gst.Element
	if g.opts.Hardware {
		postproc, err := gst.NewElement("vapostproc")
		if err != nil {
			return fmt.Errorf("pipeline: create vapostproc (VA-API required): %w", err)
		}
		chain = []*gst.Element{queue, postproc, videorate, capsfilter, appsink.Element}
	} else {
		scale, err := gst.NewElement("videoscale")
		if err != nil {
			return fmt.Errorf("pipeline: create videoscale: %w", err)
		}
		scale.SetProperty("add-borders", false)

		convert, err := gst.NewElement("videoconvert")
		if err != nil {
			return fmt.Errorf("pipeline: create videoconvert: %w", err)
		}
		chain = []*gst.Element{queue, scale, videorate, convert, capsfilter, appsink.Element}
	}

	if err := g.pipeline.AddMany(chain...); err != nil {
		return fmt.Errorf("pipeline: add video branch: %w", err)
	}
	if err := gst.ElementLinkMany(chain...); err != nil {
		return fmt.Errorf("pipeline: link video branch: %w", err)
	}

	g.videoEntry = queue
	g.appsink = appsink
	return nil
}

// buildAudioBranch creates and links the audio tail. The branch exists even
// with audio disabled, silently clocked at volume zero, so looping a file
// with an audio track behaves the same either way.
func (g *DecodeGraph) buildAudioBranch() error {
	queue, err := gst.NewElement("queue")
	if err != nil {
		return fmt.Errorf("pipeline: create audio queue: %w", err)
	}
	queue.SetProperty("name", "audio-buffer")
	queue.SetProperty("max-size-time", uint64(time.Second))
	queue.SetProperty("max-size-buffers", 0)
	queue.SetProperty("max-size-bytes", 0)

	convert, err := gst.NewElement("audioconvert")
	if err != nil {
		return fmt.Errorf("pipeline: create audioconvert: %w", err)
	}
	resample, err := gst.NewElement("audioresample")
	if err != nil {
		return fmt.Errorf("pipeline: create audioresample: %w", err)
	}
	volume, err := gst.NewElement("volume")
	if err != nil {
		return fmt.Errorf("pipeline: create volume: %w", err)
	}
	volume.SetProperty("volume", g.opts.EffectiveVolume())

	sink, err := gst.NewElement("autoaudiosink")
	if err != nil {
		return fmt.Errorf("pipeline: create autoaudiosink: %w", err)
	}
	sink.SetProperty("sync", true)

	chain := []*gst.Element{queue, convert, resample, volume, sink}
	if err := g.pipeline.AddMany(chain...); err != nil {
		return fmt.Errorf("pipeline: add audio branch: %w", err)
	}
	if err := gst.ElementLinkMany(chain...); err != nil {
		return fmt.Errorf("pipeline: link audio branch: %w", err)
	}

	g.audioEntry = queue
	g.volume = volume
	return nil
}

// wirePad routes a dynamic uridecodebin pad to the matching branch entry.
// Pads appear once per stream on preroll and again after every loop
// restart, so linking must be idempotent.
func (g *DecodeGraph) wirePad(srcPad *gst.Pad) {
	if srcPad.IsLinked() {
		return
	}

	caps := srcPad.GetCurrentCaps()
	if caps == nil {
		slog.Debug("pipeline: pad without caps ignored", "pad", srcPad.GetName())
		return
	}
	structure := caps.GetStructureAt(0)
	if structure == nil {
		return
	}
	name := structure.Name()

	var entry *gst.Element
	switch {
	case strings.HasPrefix(name, "video/"):
		entry = g.videoEntry
	case strings.HasPrefix(name, "audio/"):
		entry = g.audioEntry
	default:
		slog.Debug("pipeline: unhandled pad caps", "caps", name)
		return
	}

	sinkPad := entry.GetStaticPad("sink")
	if sinkPad == nil {
		slog.Error("pipeline: branch entry has no sink pad", "caps", name)
		return
	}
	if sinkPad.IsLinked() {
		return
	}
	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		slog.Error("pipeline: failed to link pad",
			"src_pad", srcPad.GetName(),
			"caps", name,
			"ret", ret,
		)
		return
	}

	slog.Debug("pipeline: pad linked", "pad", srcPad.GetName(), "caps", name)
}

// clampInternalQueue bounds a queue element uridecodebin created inside the
// graph. Auto-created elements keep their factory name prefix, while the
// explicit branch queues carry custom names and are left alone.
func clampInternalQueue(elem *gst.Element) {
	name := elem.GetName()
	switch {
	case strings.HasPrefix(name, "multiqueue"):
		elem.SetProperty("max-size-buffers", frameQueueBuffers)
		elem.SetProperty("max-size-bytes", 0)
		elem.SetProperty("max-size-time", uint64(0))
		slog.Debug("pipeline: clamped internal multiqueue", "element", name)
	case strings.HasPrefix(name, "queue"):
		elem.SetProperty("max-size-bytes", internalQueueBytes)
		elem.SetProperty("max-size-buffers", 0)
		elem.SetProperty("max-size-time", uint64(0))
		slog.Debug("pipeline: clamped internal queue", "element", name)
	}
}

// onNewSample runs on the streaming thread and deposits the newest sample
// in the mailbox.
func (g *DecodeGraph) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		// A single bad sample should not kill the stream.
		slog.Warn("pipeline: failed to pull sample, skipping frame")
		return gst.FlowOK
	}

	g.mu.Lock()
	g.latest = sample
	g.mu.Unlock()
	return gst.FlowOK
}

// SetPaused freezes or resumes the whole graph. Part of the playback
// transport contract.
func (g *DecodeGraph) SetPaused(paused bool) error {
	state := gst.StatePlaying
	if paused {
		state = gst.StatePaused
	}
	if err := g.pipeline.SetState(state); err != nil {
		return fmt.Errorf("pipeline: set state %s: %w", state, err)
	}
	g.paused = paused
	return nil
}

// SetMuted silences the audio branch. With audio disabled the branch is
// already silent and the call is accepted and ignored.
func (g *DecodeGraph) SetMuted(muted bool) error {
	if g.volume == nil || !g.opts.AudioEnabled {
		return nil
	}
	if err := g.volume.SetProperty("mute", muted); err != nil {
		return fmt.Errorf("pipeline: set mute: %w", err)
	}
	return nil
}

// SetVolume changes the audio volume, clamped to [0,1]. With audio disabled
// the branch stays at volume zero and the call is accepted and ignored.
func (g *DecodeGraph) SetVolume(v float64) error {
	if g.volume == nil || !g.opts.AudioEnabled {
		return nil
	}
	if err := g.volume.SetProperty("volume", video.ClampVolume(v)); err != nil {
		return fmt.Errorf("pipeline: set volume: %w", err)
	}
	return nil
}

// Options returns the options the graph was built with.
func (g *DecodeGraph) Options() video.DecodeOptions {
	return g.opts
}

// Close stops the graph and releases its resources. Safe to call twice.
func (g *DecodeGraph) Close() {
	if g.pipeline == nil {
		return
	}
	if err := g.pipeline.SetState(gst.StateNull); err != nil {
		slog.Warn("pipeline: failed to stop pipeline", "error", err)
	}
	g.pipeline = nil
	g.bus = nil

	g.mu.Lock()
	g.latest = nil
	g.mu.Unlock()
}

// CheckHardwareSupport reports whether the VA-API postprocessor the
// hardware graph needs can be created on this system.
func CheckHardwareSupport() error {
	gst.Init(nil)

	elem, err := gst.NewElement("vapostproc")
	if err != nil {
		return fmt.Errorf("vapostproc not available (install the gstreamer VA plugin): %w", err)
	}
	elem.SetState(gst.StateNull)
	return nil
}

// CheckGStreamer reports whether the GStreamer core is usable at all.
func CheckGStreamer() error {
	gst.Init(nil)

	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)
	return nil
}

// CheckElement reports whether the named GStreamer element can be created,
// which usually comes down to whether its plugin package is installed.
func CheckElement(name string) error {
	gst.Init(nil)

	elem, err := gst.NewElement(name)
	if err != nil {
		return fmt.Errorf("element %q not available: %w", name, err)
	}
	elem.SetState(gst.StateNull)
	return nil
}
