// Package cli wires the nitemix command line: the song and stream
// subcommands share one flag surface that maps onto [config.Config], with an
// optional YAML file underneath. Flags win over the file; defaults fill the
// rest.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nitevj/nitemix/internal/config"
)

var (
	configPath string

	video1    string
	video2    string
	alphaPath string

	width  int
	height int
	fps    float64

	outputPath string
	loopVideos bool

	blendOperation string
	blendFalloff   float64

	bpmFrequency string
	beatsPerBar  int
	minPitch     string
	maxPitch     string

	logLevel    string
	metricsAddr string
	ffmpegPath  string
)

var rootCmd = &cobra.Command{
	Use:   "nitemix",
	Short: "nitemix blends two videos to the beat of the music",
	Long: `nitemix composites two videos through an alpha mask, frame by frame,
steered by the musical features of an audio source: the beat clock and the
pitch content drive pulses that modulate the blend.

The audio source is either a song file (see "nitemix song") or a live
capture device (see "nitemix stream").`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the root command under ctx. It is the only entry point
// for cmd/nitemix; ctx cancellation stops a running session cleanly.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "nitemix:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&configPath, "config", "", "path to a YAML configuration file")

	pf.StringVar(&video1, "video-1", "", "primary video file")
	pf.StringVar(&video2, "video-2", "", "secondary video file")
	pf.StringVar(&alphaPath, "alpha", "", "alpha mask video file")

	pf.IntVar(&width, "width", 640, "output width in pixels")
	pf.IntVar(&height, "height", 480, "output height in pixels")
	pf.Float64Var(&fps, "fps", 30, "output frame rate")

	pf.StringVarP(&outputPath, "output", "o", "", "output video file")
	pf.BoolVar(&loopVideos, "loop", false, "restart exhausted videos instead of holding their last frame")

	pf.StringVar(&blendOperation, "blend-operation", string(config.BlendNormal),
		fmt.Sprintf("blend operation, one of %v", config.BlendOperations))
	pf.Float64Var(&blendFalloff, "blend-falloff", 0, "pulse falloff depth in [0, 1]")

	pf.StringVar(&bpmFrequency, "bpm-frequency", "",
		fmt.Sprintf("beat action frequency, one of %v", config.BPMFrequencies))
	pf.IntVar(&beatsPerBar, "beats-per-bar", config.DefaultBeatsPerBar, "beats per bar for the compass frequencies")
	pf.StringVar(&minPitch, "min-pitch", "", "lower bound of the pitch action range (c..b)")
	pf.StringVar(&maxPitch, "max-pitch", "", "upper bound of the pitch action range (c..b)")

	pf.StringVar(&logLevel, "log-level", string(config.LogInfo), "log verbosity (debug, info, warn, error)")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "listen address for the Prometheus /metrics endpoint (empty disables)")
	pf.StringVar(&ffmpegPath, "ffmpeg", "", "ffmpeg binary (default: ffmpeg on $PATH)")
}

// buildConfig loads the optional YAML file and overlays every flag the user
// set on the command line. The result still needs Validate.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}

	set("video-1", func() { cfg.Video1 = video1 })
	set("video-2", func() { cfg.Video2 = video2 })
	set("alpha", func() { cfg.Alpha = alphaPath })
	set("width", func() { cfg.Width = width })
	set("height", func() { cfg.Height = height })
	set("fps", func() { cfg.FPS = fps })
	set("output", func() { cfg.Output = outputPath })
	set("loop", func() { cfg.Loop = loopVideos })
	set("blend-operation", func() { cfg.BlendOperation = config.BlendOperation(blendOperation) })
	set("blend-falloff", func() { cfg.BlendFalloff = blendFalloff })
	set("bpm-frequency", func() { cfg.BPMFrequency = config.BPMFrequency(bpmFrequency) })
	set("beats-per-bar", func() { cfg.BeatsPerBar = beatsPerBar })
	set("min-pitch", func() { cfg.MinPitch = config.ChromaPitch(minPitch) })
	set("max-pitch", func() { cfg.MaxPitch = config.ChromaPitch(maxPitch) })
	set("log-level", func() { cfg.LogLevel = config.LogLevel(logLevel) })
	set("metrics-addr", func() { cfg.MetricsAddr = metricsAddr })
	set("ffmpeg", func() { cfg.FFmpegPath = ffmpegPath })

	cfg.ApplyDefaults()
	return cfg, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
