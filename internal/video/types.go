package video

import "fmt"

// FHDPixels is the pixel count of a 1920x1080 surface, the largest size the
// software decode path accepts unless the fallback guard is disabled.
const FHDPixels = 1920 * 1080

// FrameSize is the negotiated output size of the decode graph, in pixels.
type FrameSize struct {
	// Width in pixels
	Width int
	// Height in pixels
	Height int
}

// Valid reports whether both dimensions are positive.
func (s FrameSize) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Pixels returns the total pixel count.
func (s FrameSize) Pixels() int {
	return s.Width * s.Height
}

// String returns the size as "WxH".
func (s FrameSize) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// FallbackSize is used when the compositor leaves the surface size up to the
// client (a 0x0 configure).
var FallbackSize = FrameSize{Width: 1920, Height: 1080}

// OrFallback returns s, or FallbackSize when s is not valid.
func (s FrameSize) OrFallback() FrameSize {
	if !s.Valid() {
		return FallbackSize
	}
	return s
}

// Frame is a borrowed view of one decoded video frame. Data points into
// memory owned by the decoder and is only valid for the duration of the
// callback that received the frame. Callers that need the pixels beyond the
// callback must copy them.
//
// Pixel layout is BGRA, row-major, with a stride of Width*4 bytes.
type Frame struct {
	// Data is the mapped pixel buffer (len = Width*Height*4)
	Data []byte
	// Width in pixels
	Width int
	// Height in pixels
	Height int
}

// DecodeOptions configures a decode graph. Options are fixed once the graph
// is built; a change requires tearing the graph down and rebuilding it.
type DecodeOptions struct {
	// URI is the media location (file:// for local playback)
	URI string
	// Size is the output size the graph scales and pins to
	Size FrameSize
	// FPSCap limits delivered frames per second when positive; 0 leaves the
	// source rate untouched
	FPSCap int
	// Hardware selects the VAAPI graph shape instead of software conversion
	Hardware bool
	// AudioEnabled makes the audio branch audible; when false it runs silent
	AudioEnabled bool
	// Volume is the initial audio volume in [0,1]; ignored without audio
	Volume float64
}

// Validate reports the first configuration problem, if any.
func (o DecodeOptions) Validate() error {
	if o.URI == "" {
		return fmt.Errorf("video: URI is required")
	}
	if !o.Size.Valid() {
		return fmt.Errorf("video: invalid size %s", o.Size)
	}
	if o.FPSCap < 0 {
		return fmt.Errorf("video: negative fps cap %d", o.FPSCap)
	}
	return nil
}

// ClampVolume restricts v to the [0,1] range the volume element accepts.
func ClampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EffectiveVolume returns the volume the audio branch should run at: the
// clamped requested volume, or 0 when audio is disabled entirely.
func (o DecodeOptions) EffectiveVolume() float64 {
	if !o.AudioEnabled {
		return 0
	}
	return ClampVolume(o.Volume)
}
