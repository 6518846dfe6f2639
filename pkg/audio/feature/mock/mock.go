// Package mock provides a scripted feature extractor for tests.
package mock

import (
	"time"

	"github.com/nitevj/nitemix/pkg/audio"
	"github.com/nitevj/nitemix/pkg/audio/feature"
)

// Extractor is a scripted [feature.Extractor] reporting a fixed tempo and a
// beat every BeatPeriod of stream time. Chroma is a constant vector.
type Extractor struct {
	// TempoBPM is reported on every call.
	TempoBPM float64

	// BeatPeriod spaces the synthetic beats; 0 disables beat detection.
	BeatPeriod time.Duration

	// Chroma is reported on every call.
	Chroma [feature.ChromaBins]float64

	// Err, when set, is returned by Extract.
	Err error

	// Calls counts Extract invocations.
	Calls int

	lastBeat time.Duration
	started  bool
}

var _ feature.Extractor = (*Extractor)(nil)

// Extract reports the scripted features for the window. A beat is detected
// whenever the window contains a multiple of BeatPeriod.
func (e *Extractor) Extract(frame audio.Frame) (feature.Features, error) {
	e.Calls++
	if e.Err != nil {
		return feature.Features{}, e.Err
	}

	f := feature.Features{TempoBPM: e.TempoBPM, Chroma: e.Chroma}
	if e.BeatPeriod > 0 {
		if !e.started {
			// First beat at stream start.
			e.started = true
			e.lastBeat = 0
			f.BeatDetected = frame.Timestamp == 0
		}
		for e.lastBeat+e.BeatPeriod < frame.End() {
			e.lastBeat += e.BeatPeriod
			if e.lastBeat >= frame.Timestamp {
				f.BeatDetected = true
			}
		}
	}
	return f, nil
}
