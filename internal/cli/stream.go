package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	playbackTimeSec float64
	audioDevice     string
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Mix against live audio capture",
	Long: `Mix the videos against a live capture device. The run is unbounded
unless --playback-time-sec is given; interrupt with Ctrl+C to stop early.
Capture underruns are absorbed by retrying the starved tick once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd)
		if err != nil {
			return err
		}
		cfg.Stream = true
		cfg.SongPath = ""
		if cmd.Flags().Changed("playback-time-sec") {
			cfg.PlaybackTime = time.Duration(playbackTimeSec * float64(time.Second))
		}
		if cmd.Flags().Changed("audio-device") {
			cfg.AudioDevice = audioDevice
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runSession(cmd.Context(), cfg)
	},
}

func init() {
	streamCmd.Flags().Float64Var(&playbackTimeSec, "playback-time-sec", 0,
		"stop after this many seconds of capture (0 runs until interrupted)")
	streamCmd.Flags().StringVar(&audioDevice, "audio-device", "",
		"capture device identifier passed to ffmpeg (default: system default)")
	rootCmd.AddCommand(streamCmd)
}
