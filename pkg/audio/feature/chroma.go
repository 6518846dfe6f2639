package feature

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Frequency bounds for chroma folding. Bins outside this range carry mostly
// rumble and noise rather than pitched content.
const (
	chromaMinHz = 55 // A1
	chromaMaxHz = 5000
)

// chromagram computes a 12-bin pitch-class energy vector from one window of
// mono samples: magnitude spectrum via FFT, then each bin's energy folded onto
// its pitch class. The result is normalised so the strongest class is 1.
func chromagram(fft *fourier.FFT, samples []float64, sampleRate int) [ChromaBins]float64 {
	var chroma [ChromaBins]float64
	if len(samples) == 0 || sampleRate <= 0 {
		return chroma
	}

	coeffs := fft.Coefficients(nil, samples)
	binWidth := float64(sampleRate) / float64(len(samples))

	for k := 1; k < len(coeffs); k++ {
		freq := float64(k) * binWidth
		if freq < chromaMinHz || freq > chromaMaxHz {
			continue
		}
		mag := math.Hypot(real(coeffs[k]), imag(coeffs[k]))
		// MIDI note number; C maps to pitch class 0.
		midi := 69 + 12*math.Log2(freq/440)
		pc := int(math.Round(midi)) % ChromaBins
		if pc < 0 {
			pc += ChromaBins
		}
		chroma[pc] += mag
	}

	peak := 0.0
	for _, v := range chroma {
		if v > peak {
			peak = v
		}
	}
	if peak > 0 {
		for i := range chroma {
			chroma[i] /= peak
		}
	}
	return chroma
}
