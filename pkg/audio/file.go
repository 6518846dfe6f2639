package audio

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

const (
	// DefaultWindowSize is the number of mono samples per frame produced by
	// the built-in sources.
	DefaultWindowSize = 2048

	// readChunk is the interleaved read size used when pulling samples from a
	// decoder, in values (not frames).
	readChunk = 8192
)

// FileSource is the bounded [Source] variant: it decodes a song file
// (wav, mp3 or ogg vorbis, chosen by extension) and windows the mono-mixed
// samples into fixed-length frames at a configurable window and hop size.
//
// The sequence is finite and its length is known in advance via
// [FileSource.TotalDuration]. A FileSource is not restartable in place;
// reopen the file with [OpenFile] to start over.
type FileSource struct {
	path   string
	f      *os.File
	stream PCMStream

	window int
	hop    int
	rate   int
	total  time.Duration

	carry   []float64 // mono samples buffered between windows
	readBuf []float64 // interleaved decoder read buffer
	emitted int64     // windows emitted so far
	eof     bool
}

var _ Bounded = (*FileSource)(nil)

// FileOption configures a [FileSource] during open.
type FileOption func(*FileSource)

// WithWindow sets the frame window and hop size in mono samples. A hop
// smaller than the window yields overlapping frames. hop values <= 0 or
// greater than size fall back to size (non-overlapping windows).
func WithWindow(size, hop int) FileOption {
	return func(s *FileSource) {
		if size > 0 {
			s.window = size
		}
		if hop > 0 && hop <= s.window {
			s.hop = hop
		} else {
			s.hop = s.window
		}
	}
}

// OpenFile opens a song file as a bounded audio source. The format is chosen
// by file extension from the registered decoders. Returns a [*SourceError]
// when the file cannot be opened or is not decodable.
func OpenFile(path string, opts ...FileOption) (*FileSource, error) {
	dec, err := decoderFor(path)
	if err != nil {
		return nil, &SourceError{Name: path, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Name: path, Err: err}
	}
	stream, err := dec(f)
	if err != nil {
		f.Close()
		return nil, &SourceError{Name: path, Err: err}
	}

	s := &FileSource{
		path:    path,
		f:       f,
		stream:  stream,
		window:  DefaultWindowSize,
		hop:     DefaultWindowSize,
		rate:    stream.SampleRate(),
		total:   stream.TotalDuration(),
		readBuf: make([]float64, readChunk),
	}
	for _, o := range opts {
		o(s)
	}

	slog.Info("opened audio file",
		"path", path,
		"sample_rate", s.rate,
		"channels", stream.Channels(),
		"duration", s.total,
		"window", s.window,
		"hop", s.hop,
	)
	return s, nil
}

// TotalDuration reports the full stream length derived from the file header,
// or 0 when the container does not carry one.
func (s *FileSource) TotalDuration() time.Duration { return s.total }

// SampleRate reports the decoded sample rate in Hz.
func (s *FileSource) SampleRate() int { return s.rate }

// Next returns the next fixed-length mono frame. The final frame is
// zero-padded to the window size; afterwards Next returns [io.EOF].
func (s *FileSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	channels := s.stream.Channels()
	for len(s.carry) < s.window && !s.eof {
		n, err := s.stream.ReadSamples(s.readBuf)
		if n > 0 {
			s.carry = append(s.carry, mixToMono(s.readBuf[:n], channels)...)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			s.eof = true
		} else if err != nil {
			return Frame{}, &SourceError{Name: s.path, Err: err}
		}
	}

	if len(s.carry) == 0 {
		return Frame{}, io.EOF
	}

	samples := make([]float64, s.window)
	n := copy(samples, s.carry)
	if n < s.window {
		// Final partial window, zero-padded. Drop the carry entirely.
		s.carry = nil
	} else {
		s.carry = append(s.carry[:0:0], s.carry[s.hop:]...)
	}

	frame := Frame{
		Samples:    samples,
		SampleRate: s.rate,
		Timestamp:  time.Duration(s.emitted*int64(s.hop)) * time.Second / time.Duration(s.rate),
	}
	s.emitted++
	return frame, nil
}

// Close releases the decoder and the underlying file.
func (s *FileSource) Close() error {
	s.stream.Close()
	return s.f.Close()
}
