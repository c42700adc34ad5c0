package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"trackstreamer/pkg/streamer"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"
)

var (
	playDeviceIdx  int
	playBlocksize  int
	playCapacity   int
	playRate     uint32
	playChannels int
	playVerbose  bool
)

var playCmd = &cobra.Command{
	Use:   "play <audio_file> [audio_file...]",
	Short: "Play one or more audio files back to back",
	Long: `Plays one or more audio files sequentially on a fixed-channel output
device using a lock-free disk-to-real-time pipeline.

Examples:
  trackstreamer play track.ogg
  trackstreamer play -d 0 intro.wav verse.flac outro.ogg
  trackstreamer play -v -b 1024 track.ogg`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(args, false)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", 1, "Audio output device index")
	playCmd.Flags().IntVarP(&playBlocksize, "blocksize", "b", 512, "Frames per real-time block")
	playCmd.Flags().IntVarP(&playCapacity, "capacity", "c", 32, "Block pool capacity")
	playCmd.Flags().Uint32VarP(&playRate, "rate", "r", 44100, "Output sample rate (Hz)")
	playCmd.Flags().IntVar(&playChannels, "channels", 2, "Output channel count")
	playCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runPlay(files []string, alwaysReportStatus bool) error {
	logLevel := slog.LevelInfo
	if playVerbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	pl, totalFrames, err := buildPlaylist(files, playRate, playChannels)
	if err != nil {
		return err
	}
	defer pl.Close()

	opts := streamer.DefaultOptions()
	opts.Capacity = playCapacity
	s := streamer.New(pl, playBlocksize, playChannels, opts)
	defer s.Close()

	slog.Info("Initializing PortAudio")
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing PortAudio: %w", err)
	}
	defer portaudio.Terminate()
	slog.Info("PortAudio initialized", "version", portaudio.GetVersion())

	bind := &playback{
		streamer:   s,
		channels:   playChannels,
		blocksize:  playBlocksize,
		planar:     newPlanar(playChannels, playBlocksize),
		rateFrames: totalFrames,
		doneChan:   make(chan struct{}),
	}

	stream := &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  playDeviceIdx,
			ChannelCount: playChannels,
			SampleFormat: portaudio.SampleFmtInt16,
		},
		SampleRate: float64(playRate),
	}
	if err := stream.OpenCallback(playBlocksize, bind.audioCallback); err != nil {
		return fmt.Errorf("opening audio stream: %w", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for !s.Seek(0) {
		if time.Now().After(deadline) {
			return fmt.Errorf("prebuffer never became ready")
		}
		time.Sleep(time.Millisecond)
	}

	slog.Info("Starting playback", "files", len(files), "frames", totalFrames,
		"rate", playRate, "channels", playChannels, "blocksize", playBlocksize)
	if err := stream.StartStream(); err != nil {
		return fmt.Errorf("starting audio stream: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	statusDone := make(chan struct{})
	if playVerbose || alwaysReportStatus {
		go monitorStatus(s, statusDone)
	}

	select {
	case <-bind.finished():
		slog.Info("Playback completed")
	case sig := <-sigChan:
		slog.Info("Signal received, stopping", "signal", sig)
	}
	close(statusDone)

	if err := stream.StopStream(); err != nil {
		slog.Warn("Failed to stop stream", "error", err)
	}
	if err := stream.CloseCallback(); err != nil {
		slog.Warn("Failed to close stream", "error", err)
	}

	slog.Info("Exiting")
	return nil
}

// playback binds a Streamer to a PortAudio callback: it owns the planar
// scratch buffer GetData fills and interleaves it to int16 PCM, the
// format every example in the teacher's corpus configures PortAudio with.
type playback struct {
	streamer   *streamer.Streamer
	channels   int
	blocksize  int
	planar     [][]float32
	rateFrames uint64
	played     atomic.Uint64
	doneChan   chan struct{}
	doneOnce   atomic.Bool
}

func newPlanar(channels, blocksize int) [][]float32 {
	p := make([][]float32, channels)
	for i := range p {
		p[i] = make([]float32, blocksize)
	}
	return p
}

func (p *playback) finished() <-chan struct{} { return p.doneChan }

// audioCallback runs on PortAudio's real-time thread: it must not
// allocate or block. GetData and the int16 conversion below are both
// allocation-free given the pre-sized planar buffer and fixed blocksize.
func (p *playback) audioCallback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {
	p.streamer.GetData(p.planar, true)

	n := int(frameCount)
	if n > p.blocksize {
		n = p.blocksize
	}
	idx := 0
	for i := 0; i < n; i++ {
		for ch := 0; ch < p.channels; ch++ {
			v := p.planar[ch][i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			s := int16(v * 32767)
			output[idx] = byte(s)
			output[idx+1] = byte(s >> 8)
			idx += 2
		}
	}

	played := p.played.Add(uint64(n))
	if played >= p.rateFrames && p.doneOnce.CompareAndSwap(false, true) {
		close(p.doneChan)
		return portaudio.Complete
	}
	return portaudio.Continue
}

// monitorStatus polls pkg/diag every two seconds, adapted from the
// teacher's monitorPlayback/monitorBufferStatus loops in cmd/player.go.
func monitorStatus(s *streamer.Streamer, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st := s.Status()
			slog.Info("Playback status",
				"elapsed", st.ElapsedTime.Round(time.Millisecond),
				"underruns", st.UnderrunCount,
				"last_error", st.LastError)
		case <-done:
			return
		}
	}
}
