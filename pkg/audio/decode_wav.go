package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func init() {
	RegisterDecoder(".wav", decodeWAV)
	RegisterDecoder(".wave", decodeWAV)
}

// wavStream adapts a go-audio wav decoder to [PCMStream].
type wavStream struct {
	dec      *wav.Decoder
	duration time.Duration
	buf      *gaudio.IntBuffer
	scale    float64
}

func decodeWAV(f *os.File) (PCMStream, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}
	dur, err := dec.Duration()
	if err != nil {
		dur = 0
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("seek to pcm data: %w", err)
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	return &wavStream{
		dec:      dec,
		duration: dur,
		scale:    1 / float64(int64(1)<<(bitDepth-1)),
		buf: &gaudio.IntBuffer{
			Format: &gaudio.Format{
				NumChannels: int(dec.NumChans),
				SampleRate:  int(dec.SampleRate),
			},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

func (s *wavStream) SampleRate() int { return int(s.dec.SampleRate) }
func (s *wavStream) Channels() int { return int(s.dec.NumChans) }
func (s *wavStream) TotalDuration() time.Duration { return s.duration }
func (s *wavStream) Close() error { return nil }

func (s *wavStream) ReadSamples(dst []float64) (int, error) {
	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]
	n, err := s.dec.PCMBuffer(s.buf)
	for i := range n {
		dst[i] = float64(s.buf.Data[i]) * s.scale
	}
	if n == 0 && err == nil {
		// go-audio reports a clean end of data with a zero count.
		return 0, io.EOF
	}
	return n, err
}
