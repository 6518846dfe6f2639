// Package beatsync decouples the audio analysis clock from the video frame
// clock. The [Synchronizer] consumes raw audio frames, runs the feature
// extractor as windows become available, and emits exactly one [Signal] per
// video tick, smoothing over extractor latency and jitter with a
// phase-accumulate-and-correct state machine.
package beatsync

import (
	"time"

	"github.com/nitevj/nitemix/pkg/audio/feature"
)

// Signal is the instantaneous musical state driving the blend of one video
// frame. Signals are produced with strictly increasing timestamps, one per
// video tick, and are consumed read-only by the blend engine.
type Signal struct {
	// Timestamp of the video tick this signal belongs to.
	Timestamp time.Duration

	// BPMPhase is the position inside the current beat in [0, 1): 0 is on
	// the beat, values approach 1 just before the next one.
	BPMPhase float64

	// BeatPulse fires on the ticks where the configured action (beat clock
	// or pitch range) triggers.
	BeatPulse bool

	// Chroma is the latest pitch-class energy vector, all non-negative.
	Chroma [feature.ChromaBins]float64

	// PulseAge is the time elapsed since the last pulse; 0 on a pulse tick.
	// Before any pulse it is effectively infinite.
	PulseAge time.Duration

	// BeatPeriod is the duration of one beat at the current tempo estimate,
	// or 0 while no estimate exists.
	BeatPeriod time.Duration
}

// Decay is the falloff weight of the last pulse: 1 immediately after a pulse,
// relaxing linearly to 0 over one beat period. With no tempo estimate or no
// pulse yet, it is 0.
func (s Signal) Decay() float64 {
	if s.BeatPeriod <= 0 {
		return 0
	}
	d := 1 - float64(s.PulseAge)/float64(s.BeatPeriod)
	if d < 0 {
		return 0
	}
	return d
}
