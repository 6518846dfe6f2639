package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// validConfig returns a song-mode configuration that passes Validate.
func validConfig() Config {
	c := Config{
		Video1:       "a.mp4",
		Video2:       "b.mp4",
		Alpha:        "mask.mp4",
		SongPath:     "song.wav",
		Output:       "out.mp4",
		BPMFrequency: BPMKick,
	}
	c.ApplyDefaults()
	return c
}

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	if c.Width != 640 || c.Height != 480 {
		t.Fatalf("default size %dx%d, want 640x480", c.Width, c.Height)
	}
	if c.FPS != 30 {
		t.Fatalf("default fps %g, want 30", c.FPS)
	}
	if c.BlendOperation != BlendNormal {
		t.Fatalf("default operation %q, want normal", c.BlendOperation)
	}
	if c.BeatsPerBar != DefaultBeatsPerBar {
		t.Fatalf("default beats per bar %d, want %d", c.BeatsPerBar, DefaultBeatsPerBar)
	}
	if c.LogLevel != LogInfo {
		t.Fatalf("default log level %q, want info", c.LogLevel)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	c := Config{Width: 1280, Height: 720, FPS: 60, BlendOperation: BlendScreen}
	c.ApplyDefaults()
	if c.Width != 1280 || c.Height != 720 || c.FPS != 60 || c.BlendOperation != BlendScreen {
		t.Fatalf("defaults overwrote explicit values: %+v", c)
	}
}

func TestValidate_AcceptsValidConfig(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing video_1", func(c *Config) { c.Video1 = "" }},
		{"missing video_2", func(c *Config) { c.Video2 = "" }},
		{"missing alpha", func(c *Config) { c.Alpha = "" }},
		{"missing output", func(c *Config) { c.Output = "" }},
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"negative height", func(c *Config) { c.Height = -1 }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"no audio source", func(c *Config) { c.SongPath = "" }},
		{"both audio sources", func(c *Config) { c.Stream = true }},
		{"negative playback time", func(c *Config) { c.PlaybackTime = -1 }},
		{"unknown operation", func(c *Config) { c.BlendOperation = "overlay" }},
		{"falloff below zero", func(c *Config) { c.BlendFalloff = -0.1 }},
		{"falloff above one", func(c *Config) { c.BlendFalloff = 1.5 }},
		{"unknown frequency", func(c *Config) { c.BPMFrequency = "triplet" }},
		{"half pitch range", func(c *Config) { c.MinPitch = "c" }},
		{"invalid pitch", func(c *Config) { c.MinPitch = "x"; c.MaxPitch = "e" }},
		{"inverted pitch range", func(c *Config) { c.MinPitch = "g"; c.MaxPitch = "c" }},
		{"no action", func(c *Config) { c.BPMFrequency = "" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate passed, want error")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("got %T, want *ConfigurationError", err)
			}
		})
	}
}

func TestValidate_JoinsAllFailures(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatal("Validate passed on the zero config")
	}
	// A handful of independent failures must all surface at once.
	for _, want := range []string{"video_1", "video_2", "alpha", "output", "fps"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate_StreamModeAcceptsPlaybackBound(t *testing.T) {
	c := validConfig()
	c.SongPath = ""
	c.Stream = true
	c.PlaybackTime = 5 * time.Second
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBPMFrequency_BeatsPerPulse(t *testing.T) {
	cases := []struct {
		freq BPMFrequency
		bar  int
		want int
	}{
		{BPMKick, 4, 1},
		{BPMCompass, 4, 4},
		{BPMTwoCompass, 4, 8},
		{BPMFourCompass, 4, 16},
		{BPMCompass, 3, 3},
	}
	for _, tc := range cases {
		if got := tc.freq.BeatsPerPulse(tc.bar); got != tc.want {
			t.Fatalf("%s with %d beats per bar: got %d, want %d", tc.freq, tc.bar, got, tc.want)
		}
	}
}

func TestChromaPitch_Index(t *testing.T) {
	for i, p := range ChromaPitches {
		if p.Index() != i {
			t.Fatalf("pitch %q index %d, want %d", p, p.Index(), i)
		}
	}
	if ChromaPitch("c").Index() != 0 || ChromaPitch("b").Index() != 11 {
		t.Fatal("pitch class ordering broken")
	}
}
