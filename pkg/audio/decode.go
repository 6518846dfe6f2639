package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PCMStream is the common surface of the per-format decoders. Samples are
// interleaved float64 in [-1, 1].
type PCMStream interface {
	SampleRate() int
	Channels() int

	// ReadSamples fills dst with interleaved samples and returns the number of
	// values written. io.EOF (possibly alongside a final short count) signals
	// the end of the stream.
	ReadSamples(dst []float64) (int, error)

	// TotalDuration reports the decoded stream length, or 0 when the format
	// cannot tell without decoding everything.
	TotalDuration() time.Duration

	Close() error
}

// DecoderFunc opens a PCMStream over an already-opened file. The stream owns
// the reader side only; the file itself is closed by the caller.
type DecoderFunc func(f *os.File) (PCMStream, error)

// registry maps a lower-case file extension (".wav") to its decoder.
// The built-in formats register themselves in init; [RegisterDecoder] allows
// callers to add further formats.
var registry = struct {
	sync.Mutex
	codecs map[string]DecoderFunc
}{codecs: make(map[string]DecoderFunc)}

// RegisterDecoder installs dec as the decoder for the given file extension
// (including the leading dot, case-insensitive). Registering an extension
// twice replaces the earlier decoder.
func RegisterDecoder(ext string, dec DecoderFunc) {
	registry.Lock()
	defer registry.Unlock()
	registry.codecs[strings.ToLower(ext)] = dec
}

func decoderFor(path string) (DecoderFunc, error) {
	ext := strings.ToLower(filepath.Ext(path))
	registry.Lock()
	defer registry.Unlock()
	dec, ok := registry.codecs[ext]
	if !ok {
		return nil, fmt.Errorf("no audio decoder registered for %q", ext)
	}
	return dec, nil
}

// mixToMono collapses interleaved multi-channel samples into mono by averaging
// the channels of each frame. A single-channel input is returned unchanged.
func mixToMono(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
