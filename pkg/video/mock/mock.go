// Package mock provides in-memory video sources for tests.
package mock

import (
	"io"

	"github.com/nitevj/nitemix/pkg/video"
)

// Source is an in-memory [video.Source] replaying a fixed frame list.
type Source struct {
	Frames []video.Frame
	Dim    video.Size

	pos    int
	closed bool
}

var _ video.Source = (*Source)(nil)

// Solid builds a source of n identical frames filled with the given RGB
// colour at the given size.
func Solid(n int, size video.Size, r, g, b byte) *Source {
	frames := make([]video.Frame, n)
	for i := range frames {
		pix := make([]byte, size.Width*size.Height*3)
		for p := 0; p < len(pix); p += 3 {
			pix[p], pix[p+1], pix[p+2] = r, g, b
		}
		frames[i] = video.Frame{Pix: pix, Width: size.Width, Height: size.Height}
	}
	return &Source{Frames: frames, Dim: size}
}

// Next returns the next scripted frame or io.EOF.
func (s *Source) Next() (video.Frame, error) {
	if s.pos >= len(s.Frames) {
		return video.Frame{}, io.EOF
	}
	f := s.Frames[s.pos]
	s.pos++
	return f, nil
}

// Size returns the scripted geometry.
func (s *Source) Size() video.Size { return s.Dim }

// Close records the close.
func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Source) Closed() bool { return s.closed }

// Reopen returns a [video.Reopener] that restarts this source's frame list
// in a fresh Source.
func (s *Source) Reopen() video.Reopener {
	return func() (video.Source, error) {
		return &Source{Frames: s.Frames, Dim: s.Dim}, nil
	}
}
