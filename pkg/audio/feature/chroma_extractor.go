package feature

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/nitevj/nitemix/pkg/audio"
)

// ChromaExtractor is the built-in [Extractor]: FFT-based chromagram plus an
// energy-flux onset tracker for beats and tempo. It keeps history across
// windows and must see them in stream order. Not safe for concurrent use.
type ChromaExtractor struct {
	fft     *fourier.FFT
	fftSize int
	onsets  *onsetTracker
}

var _ Extractor = (*ChromaExtractor)(nil)

// NewChromaExtractor returns an extractor with no history. It adapts to the
// window size of the first frame it sees; subsequent frames must keep that
// size.
func NewChromaExtractor() *ChromaExtractor {
	return &ChromaExtractor{onsets: newOnsetTracker()}
}

// Extract computes the features of one window.
func (e *ChromaExtractor) Extract(frame audio.Frame) (Features, error) {
	if e.fft == nil || e.fftSize != len(frame.Samples) {
		e.fft = fourier.NewFFT(len(frame.Samples))
		e.fftSize = len(frame.Samples)
	}

	onset, bpm := e.onsets.observe(frame.Samples, frame.Timestamp)
	f := Features{
		TempoBPM:     bpm,
		BeatDetected: onset,
		Chroma:       chromagram(e.fft, frame.Samples, frame.SampleRate),
	}
	return f, nil
}
