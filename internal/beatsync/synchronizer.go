package beatsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/nitevj/nitemix/internal/config"
	"github.com/nitevj/nitemix/internal/observe"
	"github.com/nitevj/nitemix/pkg/audio"
	"github.com/nitevj/nitemix/pkg/audio/feature"
)

// pulseThreshold is the minimum mean chroma energy a beat boundary must carry
// to fire a pulse. Boundaries landing in near-silence are skipped.
const pulseThreshold = 0.1

// Config selects which musical events turn into pulses and at what video rate
// signals are emitted.
type Config struct {
	// FPS is the video tick rate. Must be positive.
	FPS float64

	// BPMFrequency enables the beat clock action when non-empty: a pulse
	// fires every N beat boundaries, N derived from the frequency and
	// BeatsPerBar.
	BPMFrequency config.BPMFrequency

	// BeatsPerBar sizes the bar for the compass frequencies. Zero means
	// [config.DefaultBeatsPerBar].
	BeatsPerBar int

	// MinPitch and MaxPitch enable the pitch range action when both are
	// set: a pulse fires on every tick whose dominant chroma pitch lies in
	// [MinPitch, MaxPitch].
	MinPitch config.ChromaPitch
	MaxPitch config.ChromaPitch

	// Metrics receives extractor latency observations. May be nil.
	Metrics *observe.Metrics
}

// Synchronizer turns an audio stream into one [Signal] per video tick.
//
// Audio is pulled lazily: each [Synchronizer.Tick] consumes just enough
// windows to cover the tick's timestamp, feeds them through the extractor and
// folds the results into the running phase estimate. The beat phase advances
// by tick/beat_period every tick and snaps to the nearest beat boundary
// whenever the extractor reports a detected beat, so transient tempo jitter
// never accumulates.
type Synchronizer struct {
	src audio.Source
	ext feature.Extractor
	cfg Config
	log *slog.Logger

	tick          time.Duration
	beatsPerPulse int // 0 when the beat clock action is disabled
	pitchEnabled  bool
	minPitch      int
	maxPitch      int

	tickIdx     int64
	phase       float64
	tempoBPM    float64
	chroma      [feature.ChromaBins]float64
	audioEnd    time.Duration
	audioEOF    bool
	pendingBeat bool
	beatsDue    int
	havePulse   bool
	sincePulse  time.Duration
}

// New builds a Synchronizer over src and ext. At least one of the beat clock
// and pitch range actions must be enabled in cfg.
func New(src audio.Source, ext feature.Extractor, cfg Config) (*Synchronizer, error) {
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("beatsync: fps must be positive, got %v", cfg.FPS)
	}
	s := &Synchronizer{
		src:  src,
		ext:  ext,
		cfg:  cfg,
		log:  slog.With("component", "beatsync"),
		tick: time.Duration(float64(time.Second) / cfg.FPS),
	}
	if cfg.BPMFrequency != "" {
		if !cfg.BPMFrequency.IsValid() {
			return nil, fmt.Errorf("beatsync: unknown bpm frequency %q", cfg.BPMFrequency)
		}
		bar := cfg.BeatsPerBar
		if bar <= 0 {
			bar = config.DefaultBeatsPerBar
		}
		s.beatsPerPulse = cfg.BPMFrequency.BeatsPerPulse(bar)
	}
	if cfg.MinPitch != "" || cfg.MaxPitch != "" {
		if !cfg.MinPitch.IsValid() || !cfg.MaxPitch.IsValid() {
			return nil, fmt.Errorf("beatsync: invalid pitch range %q..%q", cfg.MinPitch, cfg.MaxPitch)
		}
		s.pitchEnabled = true
		s.minPitch = cfg.MinPitch.Index()
		s.maxPitch = cfg.MaxPitch.Index()
	}
	if s.beatsPerPulse == 0 && !s.pitchEnabled {
		return nil, errors.New("beatsync: no action enabled")
	}
	return s, nil
}

// Tick emits the signal for the next video frame. It returns io.EOF on the
// first tick past the end of the audio stream; any other error, including
// [audio.ErrUnderrun] from a live source, is passed through unchanged so the
// caller can decide whether to retry the same tick.
func (s *Synchronizer) Tick(ctx context.Context) (Signal, error) {
	ts := time.Duration(s.tickIdx) * s.tick

	if err := s.ingest(ctx, ts+s.tick); err != nil {
		return Signal{}, err
	}
	if s.audioEOF && ts+s.tick > s.audioEnd {
		return Signal{}, io.EOF
	}

	beatSeen := s.pendingBeat
	s.pendingBeat = false
	boundaries := s.advancePhase(beatSeen)
	pulse := s.firePulse(boundaries)

	if s.havePulse {
		s.sincePulse += s.tick
	}
	if pulse {
		s.havePulse = true
		s.sincePulse = 0
	}

	sig := Signal{
		Timestamp:  ts,
		BPMPhase:   s.phase,
		BeatPulse:  pulse,
		Chroma:     s.chroma,
		PulseAge:   s.pulseAge(),
		BeatPeriod: s.beatPeriod(),
	}
	s.tickIdx++
	return sig, nil
}

// ingest pulls audio windows until the audio clock covers the tick interval
// ending at upto, extracting features from each. Detected beats are latched
// in pendingBeat rather than returned: an underrun can interrupt ingest after
// a beat-carrying window was already consumed, and the retried tick must
// still see that beat.
func (s *Synchronizer) ingest(ctx context.Context, upto time.Duration) error {
	for !s.audioEOF && s.audioEnd < upto {
		frame, err := s.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.audioEOF = true
			break
		}
		if err != nil {
			return err
		}
		s.audioEnd = frame.End()

		start := time.Now()
		feats, err := s.ext.Extract(frame)
		s.cfg.Metrics.ObserveExtract(ctx, time.Since(start))
		if err != nil {
			return fmt.Errorf("beatsync: extract at %v: %w", frame.Timestamp, err)
		}
		if feats.TempoBPM > 0 {
			s.tempoBPM = feats.TempoBPM
		}
		s.chroma = feats.Chroma
		if feats.BeatDetected {
			s.pendingBeat = true
		}
	}
	return nil
}

// advancePhase moves the beat phase forward by one tick and reconciles it
// with any detected beat, returning how many beat boundaries were crossed.
func (s *Synchronizer) advancePhase(beatSeen bool) int {
	if s.tempoBPM <= 0 {
		return 0
	}
	s.phase += float64(s.tick) / float64(s.beatPeriod())
	boundaries := int(math.Floor(s.phase))
	s.phase -= float64(boundaries)

	if beatSeen && s.phase != 0 {
		// Snap to the nearest boundary. The boundary behind us was
		// already counted during wrapping; snapping forward counts the
		// upcoming one now. An exact midpoint resolves to the earlier
		// boundary.
		if s.phase > 0.5 {
			boundaries++
		}
		s.phase = 0
	}
	return boundaries
}

// firePulse decides whether this tick pulses, given the number of beat
// boundaries crossed since the previous tick.
func (s *Synchronizer) firePulse(boundaries int) bool {
	pulse := false
	if s.beatsPerPulse > 0 && boundaries > 0 {
		s.beatsDue += boundaries
		if s.beatsDue >= s.beatsPerPulse {
			s.beatsDue -= s.beatsPerPulse
			if s.bandEnergy() >= pulseThreshold {
				pulse = true
			}
		}
	}
	if s.pitchEnabled {
		if p, ok := s.dominantPitch(); ok && p >= s.minPitch && p <= s.maxPitch {
			pulse = true
		}
	}
	if pulse {
		s.log.Debug("pulse", "tick", s.tickIdx, "tempo_bpm", s.tempoBPM)
	}
	return pulse
}

// bandEnergy is the mean of the current chroma vector. The chroma is already
// peak-normalized, so a fixed threshold separates silence from signal.
func (s *Synchronizer) bandEnergy() float64 {
	var sum float64
	for _, v := range s.chroma {
		sum += v
	}
	return sum / feature.ChromaBins
}

func (s *Synchronizer) dominantPitch() (int, bool) {
	best, bestV := 0, 0.0
	for i, v := range s.chroma {
		if v > bestV {
			best, bestV = i, v
		}
	}
	return best, bestV > 0
}

func (s *Synchronizer) beatPeriod() time.Duration {
	if s.tempoBPM <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / s.tempoBPM)
}

func (s *Synchronizer) pulseAge() time.Duration {
	if !s.havePulse {
		return math.MaxInt64
	}
	return s.sincePulse
}
