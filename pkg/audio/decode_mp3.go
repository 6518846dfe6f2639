package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

func init() {
	RegisterDecoder(".mp3", decodeMP3)
}

// mp3Stream adapts a go-mp3 decoder to [PCMStream]. go-mp3 always outputs
// 16-bit little-endian stereo PCM at the source sample rate.
type mp3Stream struct {
	dec *gomp3.Decoder
	buf []byte
}

func decodeMP3(f *os.File) (PCMStream, error) {
	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode: %w", err)
	}
	return &mp3Stream{dec: dec}, nil
}

func (s *mp3Stream) SampleRate() int { return s.dec.SampleRate() }
func (s *mp3Stream) Channels() int { return 2 }
func (s *mp3Stream) Close() error { return nil }

func (s *mp3Stream) TotalDuration() time.Duration {
	// Length is the decoded size in bytes: 4 bytes per stereo frame.
	frames := s.dec.Length() / 4
	if frames <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(s.dec.SampleRate())
}

func (s *mp3Stream) ReadSamples(dst []float64) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := s.dec.Read(s.buf)
	samples := n / 2
	for i := range samples {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = float64(v) / 32768
	}
	if samples == 0 && err == nil {
		return 0, io.EOF
	}
	return samples, err
}
