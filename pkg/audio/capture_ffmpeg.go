package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// FFmpegCapture implements [Capture] by shelling out to ffmpeg with the
// platform's input device framework (ALSA/Pulse on Linux, AVFoundation on
// macOS, DirectShow on Windows) and reading raw 32-bit float mono PCM from
// its stdout.
type FFmpegCapture struct {
	// Device is the device identifier passed to ffmpeg's -i flag.
	// Empty selects the platform default ("default", ":0", …).
	Device string

	// Path is the ffmpeg binary. Empty means "ffmpeg" on $PATH.
	Path string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    []byte
}

// captureInput returns the ffmpeg input framework and default device for the
// current platform.
func captureInput() (framework, device string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

// Open starts the ffmpeg capture process at the given sample rate.
func (c *FFmpegCapture) Open(sampleRate int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil {
		return fmt.Errorf("capture already open")
	}

	bin := c.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	framework, device := captureInput()
	if c.Device != "" {
		device = c.Device
	}

	cmd := exec.Command(bin,
		"-hide_banner", "-loglevel", "error",
		"-f", framework,
		"-i", device,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "f32le",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg capture: %w", err)
	}

	c.cmd = cmd
	c.stdout = stdout
	slog.Info("ffmpeg capture open", "framework", framework, "device", device, "sample_rate", sampleRate)
	return nil
}

// Read blocks until n mono samples arrive from the device. A short read with
// io.EOF means the capture process ended.
func (c *FFmpegCapture) Read(n int) ([]float64, error) {
	c.mu.Lock()
	stdout := c.stdout
	c.mu.Unlock()
	if stdout == nil {
		return nil, fmt.Errorf("capture not open")
	}

	need := n * 4
	if cap(c.buf) < need {
		c.buf = make([]byte, need)
	}
	read, err := io.ReadFull(stdout, c.buf[:need])
	samples := make([]float64, read/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(c.buf[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return samples, err
}

// Close terminates the capture process and releases the pipe.
func (c *FFmpegCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil {
		return nil
	}
	c.stdout.Close()
	c.cmd.Process.Kill()
	err := c.cmd.Wait()
	c.cmd = nil
	c.stdout = nil
	if err != nil {
		// Expected: the process is killed mid-stream.
		slog.Debug("ffmpeg capture exit", "err", err)
	}
	return nil
}
