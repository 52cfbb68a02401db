package pipeline

import (
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/vidwall/vidwall/internal/video"
)

// WithLatestFrame takes the newest decoded frame from the mailbox, if any,
// and passes a borrowed view of it to fn. The view aliases the mapped
// GStreamer buffer and is only valid until fn returns; fn must copy or
// upload the pixels, never retain the slice.
//
// Returns whether a frame was delivered. An error from fn is passed
// through.
func (g *DecodeGraph) WithLatestFrame(fn func(video.Frame) error) (bool, error) {
	g.mu.Lock()
	sample := g.latest
	g.latest = nil
	g.mu.Unlock()

	if sample == nil {
		return false, nil
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("pipeline: sample without buffer, skipping frame")
		return false, nil
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("pipeline: empty buffer, skipping frame")
		return false, nil
	}
	defer buffer.Unmap()

	frame := video.Frame{
		Data:   data,
		Width:  g.opts.Size.Width,
		Height: g.opts.Size.Height,
	}
	if err := fn(frame); err != nil {
		return true, err
	}
	return true, nil
}
