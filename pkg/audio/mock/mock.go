// Package mock provides scripted audio sources and capture devices for tests.
package mock

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"github.com/nitevj/nitemix/pkg/audio"
)

// Source is a scripted [audio.Source] that replays a fixed set of frames.
// The zero value is an empty, already-exhausted source.
type Source struct {
	// Frames are returned in order by Next. Err, when set, is returned after
	// the frames are exhausted instead of io.EOF.
	Frames []audio.Frame
	Err    error

	// Total is reported by TotalDuration, making the mock a bounded source.
	Total time.Duration

	mu     sync.Mutex
	pos    int
	closed bool
}

var _ audio.Bounded = (*Source)(nil)

// Next returns the next scripted frame.
func (s *Source) Next(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.Frames) {
		if s.Err != nil {
			return audio.Frame{}, s.Err
		}
		return audio.Frame{}, io.EOF
	}
	f := s.Frames[s.pos]
	s.pos++
	return f, nil
}

// TotalDuration reports the scripted total duration.
func (s *Source) TotalDuration() time.Duration { return s.Total }

// Close records the close; Closed reports it.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SineSource builds a bounded source of sine-wave frames: dur of audio at the
// given rate and frequency, windowed into window-sample frames. Useful for
// exercising the extractor with a known pitch.
func SineSource(dur time.Duration, rate, window int, freq float64) *Source {
	totalSamples := int(int64(dur) * int64(rate) / int64(time.Second))
	var frames []audio.Frame
	for start := 0; start < totalSamples; start += window {
		samples := make([]float64, window)
		for i := range samples {
			samples[i] = math.Sin(2 * math.Pi * freq * float64(start+i) / float64(rate))
		}
		frames = append(frames, audio.Frame{
			Samples:    samples,
			SampleRate: rate,
			Timestamp:  time.Duration(start) * time.Second / time.Duration(rate),
		})
	}
	return &Source{Frames: frames, Total: dur}
}

// Capture is a scripted [audio.Capture] whose Read returns silence until the
// scripted sample budget runs out, then io.EOF.
type Capture struct {
	// TotalSamples bounds the device stream; 0 means unbounded.
	TotalSamples int

	// OpenErr, when set, is returned by Open.
	OpenErr error

	// ReadDelay simulates device pacing; each Read sleeps this long.
	ReadDelay time.Duration

	mu       sync.Mutex
	produced int
	opened   bool
	closed   bool
}

var _ audio.Capture = (*Capture)(nil)

// Open acquires the fake device.
func (c *Capture) Open(sampleRate int) error {
	if c.OpenErr != nil {
		return c.OpenErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened = true
	return nil
}

// Read returns n zero samples, a short final read, or io.EOF.
func (c *Capture) Read(n int) ([]float64, error) {
	if c.ReadDelay > 0 {
		time.Sleep(c.ReadDelay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.TotalSamples > 0 {
		remaining := c.TotalSamples - c.produced
		if remaining <= 0 {
			return nil, io.EOF
		}
		if n > remaining {
			n = remaining
		}
	}
	c.produced += n
	return make([]float64, n), nil
}

// Close records the release of the fake device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (c *Capture) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
