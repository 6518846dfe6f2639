// Package blend composites a primary, secondary, and alpha video frame into
// one output frame, steered by the musical [beatsync.Signal] of the same
// tick. The [Engine] is pure: equal inputs always produce byte-identical
// output, and input frames are never written to.
package blend

import (
	"fmt"

	"github.com/nitevj/nitemix/internal/beatsync"
	"github.com/nitevj/nitemix/internal/config"
	"github.com/nitevj/nitemix/pkg/video"
)

// opFunc combines one primary byte with the already alpha-weighted secondary
// byte.
type opFunc func(pri, w uint8) uint8

var opFuncs = map[config.BlendOperation]opFunc{
	config.BlendNormal:   func(_, w uint8) uint8 { return w },
	config.BlendDarken:   func(pri, w uint8) uint8 { return min(pri, w) },
	config.BlendLighten:  func(pri, w uint8) uint8 { return max(pri, w) },
	config.BlendMultiply: func(pri, w uint8) uint8 { return uint8(uint16(pri) * uint16(w) / 255) },
	config.BlendScreen: func(pri, w uint8) uint8 {
		return 255 - uint8(uint16(255-pri)*uint16(255-w)/255)
	},
	config.BlendAdd: func(pri, w uint8) uint8 {
		s := uint16(pri) + uint16(w)
		if s > 255 {
			return 255
		}
		return uint8(s)
	},
	config.BlendDifference: func(pri, w uint8) uint8 {
		if pri > w {
			return pri - w
		}
		return w - pri
	},
}

// Engine applies one configured blend operation to frame triples.
type Engine struct {
	op      config.BlendOperation
	falloff float64
	fn      opFunc // nil for the pick operation
}

// New builds an Engine for the given operation. falloff in [0, 1] scales how
// strongly a pulse dims the secondary layer: 0 disables the effect, 1 mutes
// the secondary entirely on the pulse tick.
func New(op config.BlendOperation, falloff float64) (*Engine, error) {
	if !op.IsValid() {
		return nil, fmt.Errorf("blend: unknown operation %q", op)
	}
	if falloff < 0 || falloff > 1 {
		return nil, fmt.Errorf("blend: falloff %v outside [0, 1]", falloff)
	}
	return &Engine{op: op, falloff: falloff, fn: opFuncs[op]}, nil
}

// Operation returns the configured blend operation.
func (e *Engine) Operation() config.BlendOperation { return e.op }

// Apply blends t into dst, steered by sig. dst.Pix is reused when it already
// has the right size and allocated otherwise; the frames in t are read-only.
// All four frames must share the primary's dimensions.
func (e *Engine) Apply(dst *video.Frame, t video.Triple, sig beatsync.Signal) error {
	size := t.Primary.Size()
	for name, f := range map[string]video.Frame{
		"secondary": t.Secondary,
		"alpha":     t.Alpha,
	} {
		if f.Size() != size {
			return &video.SizeMismatchError{Name: name, Got: f.Size(), Want: size}
		}
	}

	n := len(t.Primary.Pix)
	dst.Width, dst.Height = size.Width, size.Height
	if len(dst.Pix) != n {
		dst.Pix = make([]byte, n)
	}

	// The pick operation swaps the full secondary frame in, ignoring the
	// alpha layer and the pulse falloff.
	if e.op == config.BlendPick {
		copy(dst.Pix, t.Secondary.Pix)
		return nil
	}

	// One gain for the whole frame: a fresh pulse pushes decay to 1 and the
	// secondary contribution down by falloff, relaxing over one beat period.
	gain := 1 - e.falloff*sig.Decay()

	pri, sec, alpha := t.Primary.Pix, t.Secondary.Pix, t.Alpha.Pix
	for i := 0; i < n; i++ {
		eff := float64(alpha[i]) / 255 * gain
		w := uint8(float64(sec[i])*eff + 0.5)
		dst.Pix[i] = e.fn(pri[i], w)
	}
	return nil
}
