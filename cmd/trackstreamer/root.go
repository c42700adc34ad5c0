// Command trackstreamer is an example host process for pkg/streamer: it
// builds a playlist from file arguments, drives a Streamer through a
// PortAudio callback stream, and reports diagnostics while playing.
// Structurally a generalization of the teacher's cmd/root.go,
// cmd/player.go and cmd/fileplayer.go into a single-file-per-track
// playlist host instead of the teacher's single-file or sequential-file
// players.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trackstreamer",
	Short: "Lock-free disk-to-real-time multi-track audio streamer",
	Long: `trackstreamer streams one or more audio files onto a fixed-channel
real-time output through a two-thread, lock-free pipeline: a disk thread
decodes and resamples ahead into a pool of recycled blocks, handing them
to the real-time thread through wait-free SPSC queues.

Supported formats: Ogg/Vorbis (.ogg), WAV (.wav), FLAC (.flac).

Commands:
  play:   play one or more files back to back on the output device
  status: play like "play", but always report periodic status`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
