package video

import (
	"fmt"
)

// DecodeError is a fatal video decode failure: corrupt or unreadable input.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("video decode %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SizeMismatchError reports incompatible pixel dimensions between the three
// video inputs. Detected once at construction, never per frame.
type SizeMismatchError struct {
	Name string // which input disagrees
	Got  Size
	Want Size
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("video %s has size %s, want %s", e.Name, e.Got, e.Want)
}

// Source yields decoded frames in presentation order.
//
// Next returns io.EOF once the video is exhausted. Implementations are not
// safe for concurrent Next calls.
type Source interface {
	Next() (Frame, error)
	Size() Size
	Close() error
}

// Sink consumes completed output frames: a file writer, a live preview, or a
// test collector.
type Sink interface {
	Write(Frame) error
	Close() error
}

// Collector is a [Sink] that retains every written frame. For tests.
type Collector struct {
	Frames []Frame
	closed bool
}

// Write appends a copy of the frame. Sinks receive reused buffers, so the
// pixels must be cloned to outlive the call.
func (c *Collector) Write(f Frame) error {
	c.Frames = append(c.Frames, f.Clone())
	return nil
}

// Close marks the collector closed.
func (c *Collector) Close() error {
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *Collector) Closed() bool { return c.closed }
