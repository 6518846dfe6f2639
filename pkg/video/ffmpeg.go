package video

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Probe holds the stream properties ffprobe reports for a video file.
type Probe struct {
	Size      Size
	FPS       float64
	NumFrames int64
}

// ffprobePath derives the ffprobe binary from an ffmpeg path, matching how
// the two ship together.
func ffprobePath(ffmpeg string) string {
	return strings.Replace(ffmpeg, "ffmpeg", "ffprobe", 1)
}

// ProbeFile asks ffprobe for the dimensions, frame rate and frame count of
// the first video stream in the file.
func ProbeFile(ffmpeg, path string) (Probe, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames",
		"-of", "json",
		path,
	}
	cmd := exec.Command(ffprobePath(ffmpeg), args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Probe{}, &DecodeError{Path: path, Err: fmt.Errorf("ffprobe: %w: %s", err, stderr.String())}
	}

	var probeData struct {
		Streams []struct {
			Width      int    `json:"width"`
			Height     int    `json:"height"`
			RFrameRate string `json:"r_frame_rate"`
			NBFrames   string `json:"nb_frames"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return Probe{}, &DecodeError{Path: path, Err: fmt.Errorf("parse ffprobe output: %w", err)}
	}
	if len(probeData.Streams) == 0 {
		return Probe{}, &DecodeError{Path: path, Err: fmt.Errorf("no video streams")}
	}

	st := probeData.Streams[0]
	p := Probe{Size: Size{Width: st.Width, Height: st.Height}}
	if num, den, ok := strings.Cut(st.RFrameRate, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 == nil && err2 == nil && d != 0 {
			p.FPS = n / d
		}
	}
	if st.NBFrames != "" {
		p.NumFrames, _ = strconv.ParseInt(st.NBFrames, 10, 64)
	}
	return p, nil
}

// FileSource decodes a video file into raw RGB24 frames through an ffmpeg
// subprocess, optionally rescaling and resampling to a target size and frame
// rate so all three mixer inputs share one geometry and clock.
type FileSource struct {
	path   string
	size   Size
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	waited bool
}

var _ Source = (*FileSource)(nil)

// FileSourceConfig configures decoding of one input video.
type FileSourceConfig struct {
	// FFmpeg is the ffmpeg binary; empty means "ffmpeg" on $PATH.
	FFmpeg string

	// Target is the output geometry. The zero value keeps the native size.
	Target Size

	// FPS resamples the video to a fixed frame rate. 0 keeps the native rate.
	FPS float64
}

// OpenFileSource starts decoding path. Construction fails with a
// [*DecodeError] if the file cannot be probed or the decoder cannot start.
func OpenFileSource(path string, cfg FileSourceConfig) (*FileSource, error) {
	bin := cfg.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}

	probe, err := ProbeFile(bin, path)
	if err != nil {
		return nil, err
	}
	size := cfg.Target
	if size == (Size{}) {
		size = probe.Size
	}

	var filters []string
	if size != probe.Size {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", size.Width, size.Height))
	}
	if cfg.FPS > 0 {
		filters = append(filters, fmt.Sprintf("fps=%g", cfg.FPS))
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-i", path}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	args = append(args, "-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1")

	cmd := exec.Command(bin, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	slog.Info("decoding video",
		"path", path,
		"native_size", probe.Size,
		"size", size,
		"fps", cfg.FPS,
		"frames", probe.NumFrames,
	)
	return &FileSource{path: path, size: size, cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// Size returns the decoded frame geometry.
func (s *FileSource) Size() Size { return s.size }

// Next reads one RGB24 frame from the decoder. Returns io.EOF at the end of
// the stream and a [*DecodeError] when the decoder fails mid-stream.
func (s *FileSource) Next() (Frame, error) {
	pix := make([]byte, s.size.Width*s.size.Height*3)
	if _, err := io.ReadFull(s.stdout, pix); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// The stderr buffer may only be read after Wait has joined the
			// copier goroutine os/exec runs for it.
			s.wait()
			if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
				return Frame{}, &DecodeError{Path: s.path, Err: fmt.Errorf("ffmpeg: %s", msg)}
			}
			return Frame{}, io.EOF
		}
		return Frame{}, &DecodeError{Path: s.path, Err: err}
	}
	return Frame{Pix: pix, Width: s.size.Width, Height: s.size.Height}, nil
}

// wait joins the decoder process exactly once. Wait must not be called twice
// on the same exec.Cmd.
func (s *FileSource) wait() {
	if s.waited {
		return
	}
	s.waited = true
	s.cmd.Wait()
}

// Close terminates the decoder process. Safe after the stream already ended.
func (s *FileSource) Close() error {
	s.stdout.Close()
	if !s.waited {
		s.cmd.Process.Kill()
		s.wait()
	}
	return nil
}

// FileSink encodes frames into an output video file through an ffmpeg
// subprocess fed raw RGB24 on stdin.
type FileSink struct {
	path  string
	size  Size
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

var _ Sink = (*FileSink)(nil)

// OpenFileSink starts an encoder writing to path at the given geometry and
// frame rate.
func OpenFileSink(path string, ffmpeg string, size Size, fps float64) (*FileSink, error) {
	bin := ffmpeg
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.Command(bin,
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", size.String(),
		"-r", fmt.Sprintf("%g", fps),
		"-i", "pipe:0",
		"-pix_fmt", "yuv420p",
		path,
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("video sink %q: %w", path, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("video sink %q: start ffmpeg: %w", path, err)
	}
	slog.Info("encoding output video", "path", path, "size", size, "fps", fps)
	return &FileSink{path: path, size: size, cmd: cmd, stdin: stdin}, nil
}

// Write encodes one frame.
func (s *FileSink) Write(f Frame) error {
	if f.Size() != s.size {
		return &SizeMismatchError{Name: "output frame", Got: f.Size(), Want: s.size}
	}
	if _, err := s.stdin.Write(f.Pix); err != nil {
		return fmt.Errorf("video sink %q: %w", s.path, err)
	}
	return nil
}

// Close flushes the encoder and waits for it to finish writing the container.
func (s *FileSink) Close() error {
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("video sink %q: ffmpeg: %w", s.path, err)
	}
	return nil
}
