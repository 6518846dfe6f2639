package cli

import (
	"github.com/spf13/cobra"
)

var songName string

var songCmd = &cobra.Command{
	Use:   "song",
	Short: "Mix against a song file",
	Long: `Mix the videos against a song file (wav, mp3, or ogg/vorbis). The run
is bounded: it ends when the song does, and the output holds exactly one
frame per video tick of the song's duration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("song-name") {
			cfg.SongPath = songName
		}
		cfg.Stream = false
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runSession(cmd.Context(), cfg)
	},
}

func init() {
	songCmd.Flags().StringVar(&songName, "song-name", "", "audio file driving the mix")
	_ = songCmd.MarkFlagRequired("song-name")
	rootCmd.AddCommand(songCmd)
}
