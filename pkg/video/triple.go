package video

import (
	"io"
)

// EndPolicy selects what happens when one input video is shorter than the
// others.
type EndPolicy int

const (
	// HoldLastFrame repeats the final frame of an exhausted input. This is
	// the default: it avoids the visual discontinuity a restart causes.
	HoldLastFrame EndPolicy = iota

	// Loop restarts an exhausted input from its first frame. With this
	// policy the triple sequence never ends on its own; the run is bounded
	// by the audio side.
	Loop
)

// Reopener restarts a [Source] from the beginning. [FileSource] inputs are
// looped by reopening the file.
type Reopener func() (Source, error)

// input tracks one video stream inside a TripleSource.
type input struct {
	name   string
	src    Source
	reopen Reopener
	last   Frame
	ended  bool
}

// TripleSource paces two input videos and an alpha-mask video in lockstep,
// yielding exactly one [Triple] per tick. All three must share one pixel
// geometry; this is checked once at construction.
type TripleSource struct {
	inputs [3]*input
	policy EndPolicy
	size   Size
	index  int
}

// NewTripleSource validates that primary, secondary and alpha share the same
// frame size and returns a source of aligned triples. reopeners may be nil
// when the [Loop] policy is not used.
func NewTripleSource(primary, secondary, alpha Source, policy EndPolicy, reopeners ...Reopener) (*TripleSource, error) {
	t := &TripleSource{
		inputs: [3]*input{
			{name: "primary", src: primary},
			{name: "secondary", src: secondary},
			{name: "alpha", src: alpha},
		},
		policy: policy,
		size:   primary.Size(),
	}
	for i, r := range reopeners {
		if i < len(t.inputs) {
			t.inputs[i].reopen = r
		}
	}
	for _, in := range t.inputs[1:] {
		if got := in.src.Size(); got != t.size {
			return nil, &SizeMismatchError{Name: in.name, Got: got, Want: t.size}
		}
	}
	return t, nil
}

// Size returns the shared frame geometry.
func (t *TripleSource) Size() Size { return t.size }

// Next returns the triple for the next tick. With the [HoldLastFrame]
// policy it returns io.EOF once every input has ended; with [Loop] it only
// ends on decode failure.
func (t *TripleSource) Next() (Triple, error) {
	allEnded := true
	var frames [3]Frame
	for i, in := range t.inputs {
		f, err := t.nextFrame(in)
		if err != nil {
			return Triple{}, err
		}
		frames[i] = f
		allEnded = allEnded && in.ended
	}
	if allEnded && t.policy == HoldLastFrame {
		return Triple{}, io.EOF
	}

	triple := Triple{
		Primary:   frames[0],
		Secondary: frames[1],
		Alpha:     frames[2],
		Index:     t.index,
	}
	t.index++
	return triple, nil
}

func (t *TripleSource) nextFrame(in *input) (Frame, error) {
	if in.ended {
		return in.last, nil
	}
	f, err := in.src.Next()
	switch {
	case err == nil:
		in.last = f
		return f, nil
	case err == io.EOF:
		if t.policy == Loop && in.reopen != nil {
			in.src.Close()
			src, rerr := in.reopen()
			if rerr != nil {
				return Frame{}, rerr
			}
			in.src = src
			f, err = in.src.Next()
			if err == nil {
				in.last = f
				return f, nil
			}
			return Frame{}, err
		}
		in.ended = true
		return in.last, nil
	default:
		return Frame{}, err
	}
}

// Close releases all three underlying sources, returning the first error.
func (t *TripleSource) Close() error {
	var first error
	for _, in := range t.inputs {
		if err := in.src.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
