package blend

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/nitevj/nitemix/internal/beatsync"
	"github.com/nitevj/nitemix/internal/config"
	"github.com/nitevj/nitemix/pkg/video"
)

// frame builds a 1x2 RGB frame from raw bytes.
func frame(t *testing.T, pix ...byte) video.Frame {
	t.Helper()
	if len(pix) != 6 {
		t.Fatalf("frame wants 6 bytes, got %d", len(pix))
	}
	return video.Frame{Pix: pix, Width: 1, Height: 2}
}

func testTriple(t *testing.T) video.Triple {
	t.Helper()
	return video.Triple{
		Primary:   frame(t, 100, 200, 0, 50, 255, 10),
		Secondary: frame(t, 80, 40, 255, 200, 0, 130),
		Alpha:     frame(t, 255, 255, 255, 0, 128, 255),
	}
}

func TestNew_RejectsInvalidOperation(t *testing.T) {
	if _, err := New("solarize", 0); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

func TestNew_RejectsFalloffOutOfRange(t *testing.T) {
	for _, falloff := range []float64{-0.1, 1.1} {
		if _, err := New(config.BlendNormal, falloff); err == nil {
			t.Fatalf("expected error for falloff %v", falloff)
		}
	}
}

func TestApply_Operations(t *testing.T) {
	// Expectations computed by hand from the 1x2 fixture: the weighted
	// secondary is w = round(sec * alpha/255) with no pulse in flight.
	cases := []struct {
		op   config.BlendOperation
		want []byte
	}{
		{config.BlendNormal, []byte{80, 40, 255, 0, 0, 130}},
		{config.BlendDarken, []byte{80, 40, 0, 0, 0, 10}},
		{config.BlendLighten, []byte{100, 200, 255, 50, 255, 130}},
		{config.BlendMultiply, []byte{31, 31, 0, 0, 0, 5}},
		{config.BlendScreen, []byte{149, 209, 255, 50, 255, 135}},
		{config.BlendAdd, []byte{180, 240, 255, 50, 255, 140}},
		{config.BlendDifference, []byte{20, 160, 255, 50, 255, 120}},
		{config.BlendPick, []byte{80, 40, 255, 200, 0, 130}},
	}
	for _, tc := range cases {
		t.Run(string(tc.op), func(t *testing.T) {
			e, err := New(tc.op, 0)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			var out video.Frame
			if err := e.Apply(&out, testTriple(t), beatsync.Signal{}); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if !bytes.Equal(out.Pix, tc.want) {
				t.Fatalf("got %v, want %v", out.Pix, tc.want)
			}
		})
	}
}

func TestApply_IsPureAndNonMutating(t *testing.T) {
	e, err := New(config.BlendScreen, 0.5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	triple := testTriple(t)
	snapPri := bytes.Clone(triple.Primary.Pix)
	snapSec := bytes.Clone(triple.Secondary.Pix)
	snapAlpha := bytes.Clone(triple.Alpha.Pix)
	sig := beatsync.Signal{BeatPulse: true, BeatPeriod: 500 * time.Millisecond}

	var first, second video.Frame
	if err := e.Apply(&first, triple, sig); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := e.Apply(&second, triple, sig); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Fatal("equal inputs produced different outputs")
	}
	if !bytes.Equal(triple.Primary.Pix, snapPri) ||
		!bytes.Equal(triple.Secondary.Pix, snapSec) ||
		!bytes.Equal(triple.Alpha.Pix, snapAlpha) {
		t.Fatal("Apply mutated an input frame")
	}
}

func TestApply_PulseFalloffMutesSecondary(t *testing.T) {
	e, err := New(config.BlendNormal, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Decay is 1 on the pulse tick, so falloff 1 removes the secondary
	// contribution entirely.
	sig := beatsync.Signal{BeatPulse: true, PulseAge: 0, BeatPeriod: 500 * time.Millisecond}
	var out video.Frame
	if err := e.Apply(&out, testTriple(t), sig); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(out.Pix, make([]byte, 6)) {
		t.Fatalf("got %v, want all zero", out.Pix)
	}
}

func TestApply_FalloffRelaxesOverBeatPeriod(t *testing.T) {
	e, err := New(config.BlendNormal, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Half a beat after the pulse the decay is 0.5.
	sig := beatsync.Signal{PulseAge: 250 * time.Millisecond, BeatPeriod: 500 * time.Millisecond}
	var out video.Frame
	if err := e.Apply(&out, testTriple(t), sig); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := []byte{40, 20, 128, 0, 0, 65}
	if !bytes.Equal(out.Pix, want) {
		t.Fatalf("got %v, want %v", out.Pix, want)
	}
}

func TestApply_SizeMismatch(t *testing.T) {
	e, err := New(config.BlendNormal, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	triple := testTriple(t)
	triple.Secondary = video.Frame{Pix: make([]byte, 3), Width: 1, Height: 1}
	var out video.Frame
	err = e.Apply(&out, triple, beatsync.Signal{})
	var mismatch *video.SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("got %v, want SizeMismatchError", err)
	}
}
