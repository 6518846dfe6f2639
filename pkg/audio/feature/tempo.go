package feature

import (
	"math"
	"sort"
	"time"
)

const (
	// minTempo and maxTempo bound the reported estimate; raw inter-onset
	// intervals are folded into this octave by doubling or halving.
	minTempo = 60
	maxTempo = 180

	// onsetFluxRatio is how far the energy flux must exceed its running
	// average to count as an onset.
	onsetFluxRatio = 1.5

	// silenceFloor is the RMS below which a window is treated as silence.
	silenceFloor = 1e-4

	// maxOnsets is how many recent onset times feed the interval estimate.
	maxOnsets = 16

	// tempoTolerance is the BPM distance at which a new estimate is treated
	// as a genuine tempo change: the smoothing buffer is reset so the
	// reported tempo follows the music instead of averaging two songs.
	tempoTolerance = 10
)

// onsetTracker detects energy-flux onsets and estimates tempo from the
// intervals between recent onsets. Estimates are smoothed over a rolling
// buffer and reset when the tempo changes significantly.
type onsetTracker struct {
	prevEnergy float64
	fluxAvg    float64
	onsets     []time.Duration
	bpmBuf     *rollingBuffer
}

func newOnsetTracker() *onsetTracker {
	return &onsetTracker{bpmBuf: newRollingBuffer(2, 8)}
}

// observe processes one window. It returns whether an onset was detected and
// the current smoothed tempo estimate (0 while not settled).
func (t *onsetTracker) observe(samples []float64, ts time.Duration) (onset bool, bpm float64) {
	energy := rms(samples)
	flux := energy - t.prevEnergy
	t.prevEnergy = energy
	if flux < 0 {
		flux = 0
	}

	// Running average of the positive flux, seeded by the first value.
	if t.fluxAvg == 0 {
		t.fluxAvg = flux
	} else {
		t.fluxAvg = 0.9*t.fluxAvg + 0.1*flux
	}

	onset = energy > silenceFloor && flux > onsetFluxRatio*t.fluxAvg && flux > 0
	if onset {
		t.onsets = append(t.onsets, ts)
		if len(t.onsets) > maxOnsets {
			t.onsets = t.onsets[len(t.onsets)-maxOnsets:]
		}
		if est, ok := t.estimate(); ok {
			if t.bpmBuf.full() && math.Abs(est-t.bpmBuf.mean()) > tempoTolerance {
				t.bpmBuf.reset()
			}
			t.bpmBuf.add(est)
		}
	}

	if t.bpmBuf.full() {
		bpm = t.bpmBuf.mean()
	}
	return onset, bpm
}

// estimate derives one BPM value from the median inter-onset interval,
// folded into [minTempo, maxTempo].
func (t *onsetTracker) estimate() (float64, bool) {
	if len(t.onsets) < 2 {
		return 0, false
	}
	intervals := make([]float64, 0, len(t.onsets)-1)
	for i := 1; i < len(t.onsets); i++ {
		iv := (t.onsets[i] - t.onsets[i-1]).Seconds()
		if iv > 0 {
			intervals = append(intervals, iv)
		}
	}
	if len(intervals) == 0 {
		return 0, false
	}
	sort.Float64s(intervals)
	median := intervals[len(intervals)/2]

	bpm := 60 / median
	for bpm < minTempo {
		bpm *= 2
	}
	for bpm > maxTempo {
		bpm /= 2
	}
	return bpm, true
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
