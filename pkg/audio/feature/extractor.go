// Package feature defines the musical feature-extraction boundary consumed by
// the synchronizer, and a built-in extractor that estimates tempo, beat onsets
// and a 12-bin pitch-class energy vector (chromagram) from raw audio windows.
//
// The pipeline treats the extractor as a black box: any implementation of
// [Extractor] can drive the visuals. Non-real-time latency is tolerated — the
// synchronizer's phase accumulator bridges the gap between extractor updates.
package feature

import (
	"fmt"

	"github.com/nitevj/nitemix/pkg/audio"
)

// ChromaBins is the number of pitch classes in a chromagram (C through B).
const ChromaBins = 12

// Features is one extractor output for one audio window.
type Features struct {
	// TempoBPM is the current tempo estimate in beats per minute,
	// or 0 while the extractor has not settled on one yet.
	TempoBPM float64

	// BeatDetected reports that a beat onset fell inside this window.
	BeatDetected bool

	// Chroma holds non-negative pitch-class energies, C = index 0,
	// normalised so the strongest bin is 1 (all zero for silence).
	Chroma [ChromaBins]float64
}

// DominantPitch returns the chroma index with the highest energy.
func (f Features) DominantPitch() int {
	best := 0
	for i, v := range f.Chroma {
		if v > f.Chroma[best] {
			best = i
		}
	}
	return best
}

// Validate checks the invariants downstream code relies on.
func (f Features) Validate() error {
	if f.TempoBPM < 0 {
		return fmt.Errorf("feature: negative tempo %f", f.TempoBPM)
	}
	for i, v := range f.Chroma {
		if v < 0 {
			return fmt.Errorf("feature: negative chroma energy %f at bin %d", v, i)
		}
	}
	return nil
}

// Extractor turns one audio window into musical features. Implementations may
// keep internal history across calls (windows arrive strictly in stream
// order) and are not required to be safe for concurrent use.
type Extractor interface {
	Extract(frame audio.Frame) (Features, error)
}
