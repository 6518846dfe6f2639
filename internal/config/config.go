// Package config provides the configuration schema, validation, and YAML
// loader for the nitemix video mixer. A [Config] is validated once, before
// the pipeline is constructed, and is immutable afterwards; configuration
// failures can never surface while the pipeline is running.
package config

import (
	"errors"
	"fmt"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// BlendOperation selects how the secondary video is combined with the
// primary.
type BlendOperation string

const (
	BlendNormal     BlendOperation = "normal"
	BlendDarken     BlendOperation = "darken"
	BlendLighten    BlendOperation = "lighten"
	BlendMultiply   BlendOperation = "multiply"
	BlendScreen     BlendOperation = "screen"
	BlendAdd        BlendOperation = "add"
	BlendDifference BlendOperation = "difference"

	// BlendPick always shows the secondary video, ignoring the alpha mask.
	// Not a photographic mode; useful for previewing the second input.
	BlendPick BlendOperation = "pick"
)

// BlendOperations lists every recognised operation, for CLI help text.
var BlendOperations = []BlendOperation{
	BlendNormal, BlendDarken, BlendLighten, BlendMultiply,
	BlendScreen, BlendAdd, BlendDifference, BlendPick,
}

// IsValid reports whether op is a recognised blend operation.
func (op BlendOperation) IsValid() bool {
	for _, v := range BlendOperations {
		if op == v {
			return true
		}
	}
	return false
}

// BPMFrequency selects how often the beat clock fires a pulse, in units of
// the musical bar. The mapping from a named frequency to beat periods is a
// policy of the feature side and is kept configurable rather than hard-coded.
type BPMFrequency string

const (
	// BPMKick pulses on every beat.
	BPMKick BPMFrequency = "kick"

	// BPMCompass pulses once per bar.
	BPMCompass BPMFrequency = "compass"

	// BPMTwoCompass pulses every two bars.
	BPMTwoCompass BPMFrequency = "two_compass"

	// BPMFourCompass pulses every four bars.
	BPMFourCompass BPMFrequency = "four_compass"
)

// BPMFrequencies lists every recognised frequency, for CLI help text.
var BPMFrequencies = []BPMFrequency{BPMKick, BPMCompass, BPMTwoCompass, BPMFourCompass}

// IsValid reports whether f is a recognised frequency.
func (f BPMFrequency) IsValid() bool {
	for _, v := range BPMFrequencies {
		if f == v {
			return true
		}
	}
	return false
}

// DefaultBeatsPerBar is the assumed meter when deriving bar duration from
// tempo.
const DefaultBeatsPerBar = 4

// BeatsPerPulse returns how many beats separate pulses for the frequency,
// given the configured meter.
func (f BPMFrequency) BeatsPerPulse(beatsPerBar int) int {
	if beatsPerBar <= 0 {
		beatsPerBar = DefaultBeatsPerBar
	}
	switch f {
	case BPMCompass:
		return beatsPerBar
	case BPMTwoCompass:
		return 2 * beatsPerBar
	case BPMFourCompass:
		return 4 * beatsPerBar
	default: // kick
		return 1
	}
}

// ChromaPitch names one of the twelve pitch classes, c = 0 through b = 11.
type ChromaPitch string

// ChromaPitches lists the pitch classes in index order.
var ChromaPitches = []ChromaPitch{
	"c", "c_sharp", "d", "d_sharp", "e", "f",
	"f_sharp", "g", "g_sharp", "a", "a_sharp", "b",
}

// IsValid reports whether p names a pitch class.
func (p ChromaPitch) IsValid() bool {
	_, ok := p.index()
	return ok
}

// Index returns the chroma bin for the pitch class. Panics on an invalid
// pitch; call IsValid (or Validate the config) first.
func (p ChromaPitch) Index() int {
	i, ok := p.index()
	if !ok {
		panic(fmt.Sprintf("invalid chroma pitch %q", p))
	}
	return i
}

func (p ChromaPitch) index() (int, bool) {
	for i, v := range ChromaPitches {
		if p == v {
			return i, true
		}
	}
	return 0, false
}

// Config is the root configuration for one mixer run. Built from CLI flags,
// optionally overlaid on a YAML file, then validated with [Validate].
type Config struct {
	// Inputs.
	Video1 string `yaml:"video_1"`
	Video2 string `yaml:"video_2"`
	Alpha  string `yaml:"alpha"`

	// Audio source: exactly one of the two. SongPath selects the bounded
	// file variant; Stream selects live capture.
	SongPath string `yaml:"song_name"`
	Stream   bool   `yaml:"-"`

	// PlaybackTime bounds a live run; 0 means run until interrupted.
	// Ignored in song mode.
	PlaybackTime time.Duration `yaml:"playback_time"`

	// AudioDevice is the capture device identifier for stream mode.
	// Empty selects the platform default.
	AudioDevice string `yaml:"audio_device"`

	// Output geometry and clock.
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"fps"`

	// Output is the encoded result path.
	Output string `yaml:"output"`

	// Loop restarts exhausted input videos instead of holding their last
	// frame.
	Loop bool `yaml:"loop"`

	// Blend parameters.
	BlendOperation BlendOperation `yaml:"blend_operation"`

	// BlendFalloff in [0, 1] scales the depth of the beat-synchronised
	// alpha pulse; 0 disables pulsing entirely.
	BlendFalloff float64 `yaml:"blend_falloff"`

	// BPMFrequency enables the beat action. Empty disables it, in which
	// case a pitch range must be set.
	BPMFrequency BPMFrequency `yaml:"bpm_frequency"`

	// BeatsPerBar is the assumed meter. 0 means DefaultBeatsPerBar.
	BeatsPerBar int `yaml:"beats_per_bar"`

	// MinPitch/MaxPitch enable the pitch action: a pulse fires while the
	// dominant pitch class lies inside [MinPitch, MaxPitch]. Both or
	// neither must be set.
	MinPitch ChromaPitch `yaml:"min_pitch"`
	MaxPitch ChromaPitch `yaml:"max_pitch"`

	// Ambient settings.
	LogLevel    LogLevel `yaml:"log_level"`
	MetricsAddr string   `yaml:"metrics_addr"`
	FFmpegPath  string   `yaml:"ffmpeg_path"`
}

// ConfigurationError wraps all validation failures found in a [Config].
// It is always produced before pipeline construction.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Width == 0 {
		c.Width = 640
	}
	if c.Height == 0 {
		c.Height = 480
	}
	if c.FPS == 0 {
		c.FPS = 30
	}
	if c.BeatsPerBar == 0 {
		c.BeatsPerBar = DefaultBeatsPerBar
	}
	if c.BlendOperation == "" {
		c.BlendOperation = BlendNormal
	}
	if c.LogLevel == "" {
		c.LogLevel = LogInfo
	}
}

// Validate checks that c is a coherent configuration. It returns a
// [*ConfigurationError] joining every failure found, or nil.
func (c *Config) Validate() error {
	var errs []error

	if c.Video1 == "" {
		errs = append(errs, errors.New("video_1 is required"))
	}
	if c.Video2 == "" {
		errs = append(errs, errors.New("video_2 is required"))
	}
	if c.Alpha == "" {
		errs = append(errs, errors.New("alpha is required"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid output size %dx%d", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %g must be positive", c.FPS))
	}

	if c.Stream == (c.SongPath != "") {
		errs = append(errs, errors.New("exactly one of song file and stream mode must be selected"))
	}
	if c.PlaybackTime < 0 {
		errs = append(errs, fmt.Errorf("playback_time %s must not be negative", c.PlaybackTime))
	}

	if !c.BlendOperation.IsValid() {
		errs = append(errs, fmt.Errorf("blend_operation %q is invalid; valid values: %v", c.BlendOperation, BlendOperations))
	}
	if c.BlendFalloff < 0 || c.BlendFalloff > 1 {
		errs = append(errs, fmt.Errorf("blend_falloff %g is out of range [0, 1]", c.BlendFalloff))
	}

	if c.BPMFrequency != "" && !c.BPMFrequency.IsValid() {
		errs = append(errs, fmt.Errorf("bpm_frequency %q is invalid; valid values: %v", c.BPMFrequency, BPMFrequencies))
	}

	switch {
	case (c.MinPitch == "") != (c.MaxPitch == ""):
		errs = append(errs, errors.New("min_pitch and max_pitch must both be set or both be empty"))
	case c.MinPitch != "":
		minOK := c.MinPitch.IsValid()
		maxOK := c.MaxPitch.IsValid()
		if !minOK {
			errs = append(errs, fmt.Errorf("min_pitch %q is invalid; valid values: %v", c.MinPitch, ChromaPitches))
		}
		if !maxOK {
			errs = append(errs, fmt.Errorf("max_pitch %q is invalid; valid values: %v", c.MaxPitch, ChromaPitches))
		}
		if minOK && maxOK && c.MinPitch.Index() >= c.MaxPitch.Index() {
			errs = append(errs, fmt.Errorf("min_pitch %q must be below max_pitch %q", c.MinPitch, c.MaxPitch))
		}
	}

	if c.BPMFrequency == "" && c.MinPitch == "" {
		errs = append(errs, errors.New("at least one of bpm_frequency and a pitch range must be set"))
	}

	if c.LogLevel != "" && !c.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", c.LogLevel))
	}

	if len(errs) > 0 {
		return &ConfigurationError{Err: errors.Join(errs...)}
	}
	return nil
}
