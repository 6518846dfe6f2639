package feature

// rollingBuffer keeps the most recent values up to a fixed capacity.
// Used to smooth tempo estimates over several detections: a single noisy
// beat-track result should not yank the visual beat around.
type rollingBuffer struct {
	data []float64
	max  int
	min  int
}

func newRollingBuffer(min, max int) *rollingBuffer {
	return &rollingBuffer{min: min, max: max}
}

func (b *rollingBuffer) add(v float64) {
	b.data = append(b.data, v)
	if len(b.data) > b.max {
		b.data = b.data[len(b.data)-b.max:]
	}
}

// full reports whether enough values accumulated to trust the mean.
func (b *rollingBuffer) full() bool { return len(b.data) >= b.min }

func (b *rollingBuffer) mean() float64 {
	if len(b.data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range b.data {
		sum += v
	}
	return sum / float64(len(b.data))
}

func (b *rollingBuffer) reset() { b.data = b.data[:0] }
