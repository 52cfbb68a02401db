package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
)

// PollBus drains every message currently queued on the pipeline bus. End
// of stream restarts the loop; a pipeline error is returned and fatal to
// playback. Never blocks.
func (g *DecodeGraph) PollBus() error {
	if g.bus == nil {
		return nil
	}

	for {
		msg := g.bus.TimedPop(0)
		if msg == nil {
			return nil
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Debug("pipeline: end of stream, restarting loop")
			if err := g.restart(); err != nil {
				return err
			}

		case gst.MessageError:
			gerr := msg.ParseError()
			return fmt.Errorf("pipeline: %s (%s)", gerr.Error(), gerr.DebugString())

		case gst.MessageStateChanged:
			if msg.Source() == g.pipeline.GetName() {
				old, next := msg.ParseStateChanged()
				slog.Debug("pipeline: state changed", "from", old, "to", next)
			}
		}
	}
}

// restart cycles the pipeline through NULL back to its target state,
// rewinding uridecodebin to the start of the file and dropping every
// queued buffer on the way down.
func (g *DecodeGraph) restart() error {
	if err := g.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("pipeline: loop restart, reach NULL: %w", err)
	}
	target := gst.StatePlaying
	if g.paused {
		target = gst.StatePaused
	}
	if err := g.pipeline.SetState(target); err != nil {
		return fmt.Errorf("pipeline: loop restart, reach %s: %w", target, err)
	}
	return nil
}
