package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/jfreymuth/oggvorbis"
)

func init() {
	RegisterDecoder(".ogg", decodeVorbis)
	RegisterDecoder(".oga", decodeVorbis)
}

// vorbisStream adapts an oggvorbis reader to [PCMStream].
type vorbisStream struct {
	dec *oggvorbis.Reader
	buf []float32
}

func decodeVorbis(f *os.File) (PCMStream, error) {
	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("ogg vorbis decode: %w", err)
	}
	return &vorbisStream{dec: dec}, nil
}

func (s *vorbisStream) SampleRate() int { return s.dec.SampleRate() }
func (s *vorbisStream) Channels() int { return s.dec.Channels() }
func (s *vorbisStream) Close() error { return nil }

func (s *vorbisStream) TotalDuration() time.Duration {
	// Length is in frames (samples per channel); zero for unseekable streams.
	frames := s.dec.Length()
	if frames <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(s.dec.SampleRate())
}

func (s *vorbisStream) ReadSamples(dst []float64) (int, error) {
	if cap(s.buf) < len(dst) {
		s.buf = make([]float32, len(dst))
	}
	s.buf = s.buf[:len(dst)]

	n, err := s.dec.Read(s.buf)
	for i := range n {
		dst[i] = float64(s.buf[i])
	}
	return n, err
}
