// Package video provides decoded-frame transport for the mixer: frame and
// frame-triple types, file-backed sources and sinks that shell out to ffmpeg
// for container/codec work, and the alignment logic that keeps two input
// videos plus an alpha mask in lockstep at a fixed frame rate.
//
// The pipeline only ever sees decoded RGB24 pixel buffers; encoding and
// decoding stay behind the ffmpeg process boundary.
package video

import "fmt"

// Size is a pixel dimension pair.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Frame is one decoded video frame: packed RGB24, no padding between rows.
// Frames are single-owner values handed off once per pipeline tick; a
// component that wants to keep pixel data beyond its tick must Clone.
type Frame struct {
	// Pix holds Width*Height*3 bytes, R-G-B per pixel, row-major.
	Pix    []byte
	Width  int
	Height int
}

// Size returns the frame dimensions.
func (f Frame) Size() Size { return Size{Width: f.Width, Height: f.Height} }

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return Frame{Pix: pix, Width: f.Width, Height: f.Height}
}

// Triple is the per-tick unit the blender consumes: one frame from each input
// video plus the alpha mask, all equally sized, with a monotonically
// increasing index aligned 1:1 with the blend-signal sequence.
type Triple struct {
	Primary   Frame
	Secondary Frame
	Alpha     Frame
	Index     int
}
