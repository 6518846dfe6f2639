package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromReader_ParsesAndDefaults(t *testing.T) {
	yml := `
video_1: a.mp4
video_2: b.mp4
alpha: mask.mp4
song_name: song.wav
output: out.mp4
width: 1280
blend_operation: darken
blend_falloff: 0.4
bpm_frequency: compass
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Video1 != "a.mp4" || cfg.SongPath != "song.wav" {
		t.Fatalf("inputs not parsed: %+v", cfg)
	}
	if cfg.Width != 1280 {
		t.Fatalf("width %d, want 1280", cfg.Width)
	}
	if cfg.Height != 480 {
		t.Fatalf("height default %d, want 480", cfg.Height)
	}
	if cfg.BlendOperation != BlendDarken || cfg.BlendFalloff != 0.4 {
		t.Fatalf("blend settings not parsed: %+v", cfg)
	}
	if cfg.BPMFrequency != BPMCompass {
		t.Fatalf("bpm_frequency %q, want compass", cfg.BPMFrequency)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("vide_1: typo.mp4\n")); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestLoadFromReader_EmptyInputYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Width != 640 || cfg.FPS != 30 || cfg.LogLevel != LogInfo {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("width: 320\nheight: 240\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 240 {
		t.Fatalf("got %dx%d, want 320x240", cfg.Width, cfg.Height)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}
