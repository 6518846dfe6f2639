package audio

import (
	"context"
	"io"
	"log/slog"
	"time"
)

const (
	// liveQueueDepth bounds the producer queue between the capture device and
	// the pipeline. Small on purpose: if the pipeline falls behind, the
	// producer blocks instead of growing memory; if the device falls behind,
	// the pipeline blocks on Next, which is the desired behaviour for live
	// audio — visual output waits for real audio, it is never fabricated.
	liveQueueDepth = 4

	// DefaultUnderrunWait is how long [LiveSource.Next] waits for a frame
	// before reporting [ErrUnderrun].
	DefaultUnderrunWait = 500 * time.Millisecond
)

// Capture is the device-level boundary used by the unbounded live source.
// Implementations wrap an audio input device.
type Capture interface {
	// Open acquires the device at the given sample rate.
	Open(sampleRate int) error

	// Read blocks until n mono samples are available and returns them in
	// [-1, 1]. A short read with io.EOF means the device stream ended.
	Read(n int) ([]float64, error)

	// Close releases the device. Safe to call more than once.
	Close() error
}

// LiveSource is the unbounded [Source] variant: a producer goroutine pulls
// windows from a [Capture] device into a bounded queue, decoupling
// device-driven timing from pipeline-driven timing. This queue is the only
// concurrency boundary in the core.
//
// The sequence is infinite unless a playback limit is set, in which case the
// source ends with io.EOF once the captured audio reaches that limit.
// A LiveSource is not restartable.
type LiveSource struct {
	capture Capture
	rate    int
	window  int
	limit   time.Duration // 0 = unbounded
	wait    time.Duration

	frames  chan Frame
	errCh   chan error
	cancel  context.CancelFunc
	done    chan struct{}
	observe func(delta int64)
}

// LiveOption configures a [LiveSource].
type LiveOption func(*LiveSource)

// WithPlaybackLimit bounds the stream to d of captured audio. The zero value
// leaves the stream unbounded.
func WithPlaybackLimit(d time.Duration) LiveOption {
	return func(s *LiveSource) { s.limit = d }
}

// WithLiveWindow sets the frame window size in mono samples.
func WithLiveWindow(size int) LiveOption {
	return func(s *LiveSource) {
		if size > 0 {
			s.window = size
		}
	}
}

// WithUnderrunWait sets how long Next waits for a live frame before returning
// [ErrUnderrun].
func WithUnderrunWait(d time.Duration) LiveOption {
	return func(s *LiveSource) {
		if d > 0 {
			s.wait = d
		}
	}
}

// WithQueueObserver installs a callback invoked with +1 when the producer
// enqueues a frame and -1 when Next dequeues one, for queue-depth gauges.
func WithQueueObserver(fn func(delta int64)) LiveOption {
	return func(s *LiveSource) { s.observe = fn }
}

// OpenLive opens the capture device and starts the producer goroutine.
// Returns a [*SourceError] when the device cannot be acquired.
func OpenLive(capture Capture, opts ...LiveOption) (*LiveSource, error) {
	s := &LiveSource{
		capture: capture,
		rate:    DefaultSampleRate,
		window:  DefaultWindowSize,
		wait:    DefaultUnderrunWait,
		frames:  make(chan Frame, liveQueueDepth),
		errCh:   make(chan error, 1),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	if err := capture.Open(s.rate); err != nil {
		return nil, &SourceError{Name: "capture", Err: err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.produce(ctx)

	slog.Info("live capture started",
		"sample_rate", s.rate,
		"window", s.window,
		"playback_limit", s.limit,
	)
	return s, nil
}

// produce reads windows from the device into the bounded frame queue until
// the stream ends, the playback limit is reached, or the source is closed.
func (s *LiveSource) produce(ctx context.Context) {
	defer close(s.frames)
	defer close(s.done)

	var pos int64 // mono samples captured so far
	for {
		if ctx.Err() != nil {
			return
		}

		samples, err := s.capture.Read(s.window)
		ts := time.Duration(pos) * time.Second / time.Duration(s.rate)
		if len(samples) > 0 {
			if len(samples) < s.window {
				padded := make([]float64, s.window)
				copy(padded, samples)
				samples = padded
			}
			pos += int64(s.window)
			frame := Frame{Samples: samples, SampleRate: s.rate, Timestamp: ts}
			select {
			case s.frames <- frame:
				if s.observe != nil {
					s.observe(1)
				}
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				s.errCh <- &SourceError{Name: "capture", Err: err}
			}
			return
		}
		if s.limit > 0 && time.Duration(pos)*time.Second/time.Duration(s.rate) >= s.limit {
			slog.Info("playback limit reached", "limit", s.limit)
			return
		}
	}
}

// Next returns the next captured frame. It waits a bounded time for the
// producer; when nothing arrives it returns [ErrUnderrun], which the caller
// may retry once before treating the stream as broken. Returns io.EOF once
// the device stream ends or the playback limit is reached.
func (s *LiveSource) Next(ctx context.Context) (Frame, error) {
	timer := time.NewTimer(s.wait)
	defer timer.Stop()

	select {
	case frame, ok := <-s.frames:
		if !ok {
			select {
			case err := <-s.errCh:
				return Frame{}, err
			default:
			}
			return Frame{}, io.EOF
		}
		if s.observe != nil {
			s.observe(-1)
		}
		return frame, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-timer.C:
		return Frame{}, ErrUnderrun
	}
}

// Close stops the producer and releases the capture device. Pending frames
// are discarded. Safe to call more than once.
func (s *LiveSource) Close() error {
	s.cancel()
	// The producer may be blocked pushing into the full queue; drain until it
	// exits so the device handle is released promptly.
	for {
		select {
		case _, ok := <-s.frames:
			if !ok {
				return s.capture.Close()
			}
		case <-s.done:
			return s.capture.Close()
		}
	}
}
