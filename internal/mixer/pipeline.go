// Package mixer runs the frame loop: it pairs each video frame triple with
// the musical signal of the same tick, blends them, and hands the result to
// the output sink. One [Pipeline] owns one complete session from start to
// completion or failure.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nitevj/nitemix/internal/beatsync"
	"github.com/nitevj/nitemix/internal/blend"
	"github.com/nitevj/nitemix/internal/observe"
	"github.com/nitevj/nitemix/pkg/audio"
	"github.com/nitevj/nitemix/pkg/video"
)

// underrunRetryWait is how long the pipeline pauses before retrying a tick
// after a live-capture underrun. A single retry is attempted per tick; a
// second underrun on the same tick fails the run.
const underrunRetryWait = 50 * time.Millisecond

// progressInterval paces the keep-alive log line for long sessions.
const progressInterval = 5 * time.Second

// State describes the lifecycle of a [Pipeline].
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// TripleSource yields aligned frame triples, [io.EOF] at stream end.
type TripleSource interface {
	Next() (video.Triple, error)
	Size() video.Size
	Close() error
}

// Signaler yields one musical signal per tick, [io.EOF] when the audio ends,
// [audio.ErrUnderrun] when a live source starved — the pipeline retries that
// tick once.
type Signaler interface {
	Tick(ctx context.Context) (beatsync.Signal, error)
}

// Pipeline drives one mixing session. Construct with [New], run with
// [Pipeline.Run]; a Pipeline is single-use.
type Pipeline struct {
	frames  TripleSource
	signals Signaler
	engine  *blend.Engine
	sink    video.Sink
	metrics *observe.Metrics
	extra   []io.Closer
	log     *slog.Logger

	state atomic.Int32
}

// New assembles a pipeline. metrics may be nil. Any extra closers — typically
// the audio source feeding the signaler — are released together with the
// video sources when Run returns.
func New(frames TripleSource, signals Signaler, engine *blend.Engine, sink video.Sink, metrics *observe.Metrics, extra ...io.Closer) *Pipeline {
	return &Pipeline{
		frames:  frames,
		signals: signals,
		engine:  engine,
		sink:    sink,
		metrics: metrics,
		extra:   extra,
		log:     slog.With("component", "mixer"),
	}
}

// State reports the pipeline lifecycle state. Safe to call from any
// goroutine while Run is in flight.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Run executes the frame loop until the inputs are exhausted, the context is
// cancelled, or an error occurs. Sources and the sink are released before Run
// returns, in every outcome.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("mixer: pipeline already %s", p.State())
	}
	defer func() {
		// A failed release fails the run: a sink close error means the
		// encoder could not flush, so the output cannot be trusted.
		err = errors.Join(err, p.release())
		if err != nil {
			p.state.Store(int32(StateFailed))
		} else {
			p.state.Store(int32(StateCompleted))
		}
	}()

	op := string(p.engine.Operation())
	p.log.Info("mixing started", "size", p.frames.Size(), "operation", op)

	var (
		out      video.Frame
		frames   int64
		pulses   int64
		start    = time.Now()
		progress = start
	)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("mixer: %w", err)
		}

		sig, err := p.tickWithRetry(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("mixer: signal: %w", err)
		}

		triple, err := p.frames.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("mixer: video: %w", err)
		}

		blendStart := time.Now()
		if err := p.engine.Apply(&out, triple, sig); err != nil {
			return fmt.Errorf("mixer: blend frame %d: %w", triple.Index, err)
		}
		p.metrics.ObserveBlend(ctx, time.Since(blendStart))

		if err := p.sink.Write(out); err != nil {
			return fmt.Errorf("mixer: write frame %d: %w", triple.Index, err)
		}
		p.metrics.RecordFrame(ctx, op)
		frames++
		if sig.BeatPulse {
			p.metrics.RecordPulse(ctx)
			pulses++
		}

		if now := time.Now(); now.Sub(progress) >= progressInterval {
			progress = now
			p.log.Info("mixing", "frames", frames, "pulses", pulses,
				"position", sig.Timestamp.Round(time.Millisecond))
		}
	}

	p.log.Info("mixing finished", "frames", frames, "pulses", pulses,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// tickWithRetry pulls the next signal, absorbing one live underrun per tick.
func (p *Pipeline) tickWithRetry(ctx context.Context) (beatsync.Signal, error) {
	sig, err := p.signals.Tick(ctx)
	if !errors.Is(err, audio.ErrUnderrun) {
		return sig, err
	}
	p.metrics.RecordUnderrun(ctx)
	p.log.Warn("audio underrun, retrying tick")

	select {
	case <-ctx.Done():
		return beatsync.Signal{}, ctx.Err()
	case <-time.After(underrunRetryWait):
	}
	return p.signals.Tick(ctx)
}

// release closes the sink first so encoders flush, then the frame sources.
func (p *Pipeline) release() error {
	var errs []error
	if err := p.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("mixer: close sink: %w", err))
	}
	if err := p.frames.Close(); err != nil {
		errs = append(errs, fmt.Errorf("mixer: close video: %w", err))
	}
	for _, c := range p.extra {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mixer: close resource: %w", err))
		}
	}
	return errors.Join(errs...)
}
