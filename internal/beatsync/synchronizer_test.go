package beatsync

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/nitevj/nitemix/internal/config"
	"github.com/nitevj/nitemix/pkg/audio"
	"github.com/nitevj/nitemix/pkg/audio/feature"
	featuremock "github.com/nitevj/nitemix/pkg/audio/feature/mock"
	audiomock "github.com/nitevj/nitemix/pkg/audio/mock"
)

// song returns a bounded source: dur of audio at 1 kHz in 100-sample windows.
func song(dur time.Duration) *audiomock.Source {
	return audiomock.SineSource(dur, 1000, 100, 10)
}

// loudChroma has mean energy comfortably above the pulse threshold, with the
// dominant pitch at class 2 (d).
func loudChroma() [feature.ChromaBins]float64 {
	var c [feature.ChromaBins]float64
	for i := range c {
		c[i] = 0.4
	}
	c[2] = 1
	return c
}

// drain runs the synchronizer to EOF and returns every emitted signal.
func drain(t *testing.T, s *Synchronizer) []Signal {
	t.Helper()
	var out []Signal
	for {
		sig, err := s.Tick(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Tick %d: %v", len(out), err)
		}
		out = append(out, sig)
		if len(out) > 10000 {
			t.Fatal("synchronizer never reached EOF")
		}
	}
}

func TestNew_Validation(t *testing.T) {
	src, ext := song(time.Second), &featuremock.Extractor{}
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero fps", Config{BPMFrequency: config.BPMKick}},
		{"no action", Config{FPS: 30}},
		{"bad frequency", Config{FPS: 30, BPMFrequency: "half_compass"}},
		{"bad pitch", Config{FPS: 30, MinPitch: "c", MaxPitch: "h"}},
		{"half pitch range", Config{FPS: 30, MinPitch: "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(src, ext, tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTick_OneSignalPerTickUntilAudioEnds(t *testing.T) {
	ext := &featuremock.Extractor{TempoBPM: 120, BeatPeriod: 500 * time.Millisecond, Chroma: loudChroma()}
	s, err := New(song(3*time.Second), ext, Config{FPS: 30, BPMFrequency: config.BPMKick})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	signals := drain(t, s)
	if len(signals) != 90 {
		t.Fatalf("3.0s at 30 fps: got %d signals, want 90", len(signals))
	}
	for i, sig := range signals {
		if sig.BPMPhase < 0 || sig.BPMPhase >= 1 {
			t.Fatalf("signal %d: phase %v outside [0, 1)", i, sig.BPMPhase)
		}
		if i > 0 && sig.Timestamp <= signals[i-1].Timestamp {
			t.Fatalf("signal %d: timestamp %v not after %v", i, sig.Timestamp, signals[i-1].Timestamp)
		}
	}
}

func TestTick_EmptyAudioEndsImmediately(t *testing.T) {
	s, err := New(&audiomock.Source{}, &featuremock.Extractor{}, Config{FPS: 30, BPMFrequency: config.BPMKick})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Tick(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("got %v, want io.EOF", err)
	}
}

func TestTick_PhaseSnapsToDetectedBeats(t *testing.T) {
	// The scripted tempo estimate (110 BPM) disagrees with the actual beat
	// spacing (500ms, 120 BPM). Without snapping the phase would drift and
	// never return to exactly zero after tick 0; with snapping it resets on
	// every detected beat.
	ext := &featuremock.Extractor{TempoBPM: 110, BeatPeriod: 500 * time.Millisecond, Chroma: loudChroma()}
	s, err := New(song(3*time.Second), ext, Config{FPS: 30, BPMFrequency: config.BPMKick})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resets := 0
	for i, sig := range drain(t, s) {
		if i > 0 && sig.BPMPhase == 0 {
			resets++
		}
	}
	if resets < 5 {
		t.Fatalf("got %d phase resets, want at least 5", resets)
	}
}

func TestTick_KickPulsesOncePerBeat(t *testing.T) {
	ext := &featuremock.Extractor{TempoBPM: 120, BeatPeriod: 500 * time.Millisecond, Chroma: loudChroma()}
	s, err := New(song(3*time.Second), ext, Config{FPS: 30, BPMFrequency: config.BPMKick})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pulses := 0
	for _, sig := range drain(t, s) {
		if sig.BeatPulse {
			pulses++
		}
	}
	// Beats at 0.5s .. 2.5s cross a boundary; the beat at t=0 does not.
	if pulses != 5 {
		t.Fatalf("got %d pulses, want 5", pulses)
	}
}

func TestTick_CompassPulsesOncePerBar(t *testing.T) {
	ext := &featuremock.Extractor{TempoBPM: 120, BeatPeriod: 500 * time.Millisecond, Chroma: loudChroma()}
	s, err := New(song(3*time.Second), ext, Config{FPS: 30, BPMFrequency: config.BPMCompass})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pulses := 0
	for _, sig := range drain(t, s) {
		if sig.BeatPulse {
			pulses++
		}
	}
	// 5 boundary crossings in 3s; one full 4-beat bar completes.
	if pulses != 1 {
		t.Fatalf("got %d pulses, want 1", pulses)
	}
}

func TestTick_SilentBoundariesDoNotPulse(t *testing.T) {
	// Beats are detected but the chroma carries no energy, so the pulse
	// gate stays shut while the phase keeps running.
	ext := &featuremock.Extractor{TempoBPM: 120, BeatPeriod: 500 * time.Millisecond}
	s, err := New(song(3*time.Second), ext, Config{FPS: 30, BPMFrequency: config.BPMKick})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	advanced := false
	for _, sig := range drain(t, s) {
		if sig.BeatPulse {
			t.Fatal("pulse fired on silent audio")
		}
		if sig.BPMPhase > 0 {
			advanced = true
		}
	}
	if !advanced {
		t.Fatal("phase never advanced")
	}
}

func TestTick_PitchActionFiresInsideRange(t *testing.T) {
	ext := &featuremock.Extractor{TempoBPM: 120, Chroma: loudChroma()} // dominant pitch d
	s, err := New(song(time.Second), ext, Config{FPS: 30, MinPitch: "c", MaxPitch: "e"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	signals := drain(t, s)
	pulses := 0
	for _, sig := range signals {
		if sig.BeatPulse {
			pulses++
		}
	}
	if pulses != len(signals) {
		t.Fatalf("got %d pulses over %d ticks, want every tick", pulses, len(signals))
	}
}

func TestTick_PitchActionSilentOutsideRange(t *testing.T) {
	ext := &featuremock.Extractor{TempoBPM: 120, Chroma: loudChroma()}
	s, err := New(song(time.Second), ext, Config{FPS: 30, MinPitch: "f", MaxPitch: "b"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, sig := range drain(t, s) {
		if sig.BeatPulse {
			t.Fatal("pulse fired outside the pitch range")
		}
	}
}

func TestTick_NoFeaturesBeforeFirstEstimate(t *testing.T) {
	ext := &featuremock.Extractor{} // no tempo, no beats, zero chroma
	s, err := New(song(time.Second), ext, Config{FPS: 30, BPMFrequency: config.BPMKick})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i, sig := range drain(t, s) {
		if sig.BPMPhase != 0 || sig.BeatPulse || sig.BeatPeriod != 0 {
			t.Fatalf("signal %d not neutral: %+v", i, sig)
		}
		if sig.Decay() != 0 {
			t.Fatalf("signal %d: decay %v before any pulse", i, sig.Decay())
		}
	}
}

// stutterSource wraps a source and injects a single underrun in place of the
// frame at index failAt.
type stutterSource struct {
	inner  audio.Source
	failAt int
	pos    int
	fired  bool
}

func (s *stutterSource) Next(ctx context.Context) (audio.Frame, error) {
	if s.pos == s.failAt && !s.fired {
		s.fired = true
		return audio.Frame{}, audio.ErrUnderrun
	}
	f, err := s.inner.Next(ctx)
	if err == nil {
		s.pos++
	}
	return f, err
}

func (s *stutterSource) Close() error { return s.inner.Close() }

func TestTick_BeatSurvivesUnderrunRetry(t *testing.T) {
	// At 4 fps each tick ingests several 100ms windows. The underrun lands
	// after the window carrying the 500ms beat was already consumed, so the
	// retried tick must still snap the phase and pulse for that beat.
	ext := &featuremock.Extractor{TempoBPM: 110, BeatPeriod: 500 * time.Millisecond, Chroma: loudChroma()}
	src := &stutterSource{inner: song(2 * time.Second), failAt: 6}
	s, err := New(src, ext, Config{FPS: 4, BPMFrequency: config.BPMKick})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	var signals []Signal
	for len(signals) < 3 {
		sig, err := s.Tick(ctx)
		if errors.Is(err, audio.ErrUnderrun) {
			continue
		}
		if err != nil {
			t.Fatalf("Tick %d: %v", len(signals), err)
		}
		signals = append(signals, sig)
	}
	if !src.fired {
		t.Fatal("underrun was never injected")
	}
	if phase := signals[2].BPMPhase; phase != 0 {
		t.Fatalf("retried tick phase %v, want snap to 0", phase)
	}
	if !signals[2].BeatPulse {
		t.Fatal("retried tick lost the beat pulse")
	}
}

func TestTick_UnderrunPassesThrough(t *testing.T) {
	src := &audiomock.Source{Err: audio.ErrUnderrun}
	s, err := New(src, &featuremock.Extractor{}, Config{FPS: 30, BPMFrequency: config.BPMKick})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Tick(context.Background()); !errors.Is(err, audio.ErrUnderrun) {
		t.Fatalf("got %v, want audio.ErrUnderrun", err)
	}
}

func TestTick_ExtractorErrorFails(t *testing.T) {
	boom := errors.New("boom")
	ext := &featuremock.Extractor{Err: boom}
	s, err := New(song(time.Second), ext, Config{FPS: 30, BPMFrequency: config.BPMKick})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Tick(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped extractor error", err)
	}
}

func TestTick_PulseAgeAndDecay(t *testing.T) {
	ext := &featuremock.Extractor{TempoBPM: 120, BeatPeriod: 500 * time.Millisecond, Chroma: loudChroma()}
	s, err := New(song(3*time.Second), ext, Config{FPS: 30, BPMFrequency: config.BPMKick})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sawPulse := false
	for i, sig := range drain(t, s) {
		if sig.BeatPulse {
			sawPulse = true
			if sig.PulseAge != 0 {
				t.Fatalf("signal %d: pulse tick with age %v", i, sig.PulseAge)
			}
			if sig.Decay() != 1 {
				t.Fatalf("signal %d: pulse tick decay %v, want 1", i, sig.Decay())
			}
		} else if sawPulse && sig.PulseAge == 0 {
			t.Fatalf("signal %d: zero age without a pulse", i)
		}
	}
	if !sawPulse {
		t.Fatal("no pulse observed")
	}
}
