package audio

import "time"

// DefaultSampleRate is the sample rate sources produce when the caller does
// not request another one. The feature extractor is tuned for 44.1 kHz mono.
const DefaultSampleRate = 44100

// Frame is a fixed-length window of mono audio flowing through the pipeline.
// Frames are the atomic unit of audio transport — produced by a [Source],
// consumed by the feature synchronizer, and discarded after one pipeline tick.
// A Frame is immutable once produced; consumers must not write to Samples.
type Frame struct {
	// Samples holds mono amplitudes in [-1, 1].
	Samples []float64

	// SampleRate in Hz (e.g., 44100).
	SampleRate int

	// Timestamp of the first sample, relative to stream start, derived from
	// the sample clock (not wall time).
	Timestamp time.Duration
}

// Duration returns the time span covered by the frame's samples.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// End returns the timestamp just past the last sample of the frame.
func (f Frame) End() time.Duration {
	return f.Timestamp + f.Duration()
}
