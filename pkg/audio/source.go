// Package audio defines the audio frame type and the source abstraction the
// mixer pipeline consumes, together with the two source variants: a bounded
// file source (wav/mp3/ogg) and an unbounded live-capture source.
//
// Both variants share one capability surface — [Source] — so downstream
// components never branch on the source kind. A bounded source exhausts
// deterministically with [io.EOF]; an unbounded source is paced by the capture
// device and may additionally be time-boxed.
package audio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnderrun is returned by a live [Source] when no frame became available
// within the bounded wait. It is recoverable: the caller may retry once before
// treating it as fatal.
var ErrUnderrun = errors.New("audio: capture underrun")

// SourceError is a fatal audio source failure: the device or file could not be
// opened or read. It wraps the originating cause.
type SourceError struct {
	// Name identifies the file path or capture device.
	Name string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("audio source %q: %v", e.Name, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Source produces a lazy, forward-only sequence of fixed-length audio frames.
//
// Next returns the next frame, or [io.EOF] once the stream is exhausted. Live
// sources return [ErrUnderrun] when a frame is not available within a bounded
// wait, and honour ctx cancellation while blocked. Frames must be consumed in
// order; Source implementations are not safe for concurrent Next calls.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Bounded is implemented by sources whose total duration is known in advance
// (i.e. the song-file variant).
type Bounded interface {
	Source

	// TotalDuration reports the full stream length derived from the file.
	TotalDuration() time.Duration
}
