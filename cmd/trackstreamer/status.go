package main

import "github.com/spf13/cobra"

// statusCmd plays back exactly like play, but always reports periodic
// diagnostics regardless of -v. Adapted from the teacher's verbose-gated
// monitorBufferStatus loop (cmd/player.go) into its own entry point since
// this host process has no separate running server to query out of band.
var statusCmd = &cobra.Command{
	Use:   "status <audio_file> [audio_file...]",
	Short: "Play files while reporting periodic status",
	Long: `Plays back one or more audio files exactly like "play", but always
logs a status line every two seconds: elapsed time, underrun count, and
the disk thread's last recorded error, if any.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(args, true)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", 1, "Audio output device index")
	statusCmd.Flags().IntVarP(&playBlocksize, "blocksize", "b", 512, "Frames per real-time block")
	statusCmd.Flags().IntVarP(&playCapacity, "capacity", "c", 32, "Block pool capacity")
	statusCmd.Flags().Uint32VarP(&playRate, "rate", "r", 44100, "Output sample rate (Hz)")
	statusCmd.Flags().IntVar(&playChannels, "channels", 2, "Output channel count")
	statusCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}
