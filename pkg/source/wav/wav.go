// Package wav wraps github.com/youpy/go-wav as a source.AudioSource.
package wav

import (
	"fmt"
	"io"
	"os"

	"github.com/youpy/go-wav"

	"trackstreamer/pkg/source"
)

// Source decodes a PCM WAV file. go-wav's Reader exposes no seek method, so
// Seek reopens the file and skips forward by decoding, mirroring how the
// teacher's own decoder treats go-wav as strictly forward-only.
type Source struct {
	path     string
	file     *os.File
	reader   *wav.Reader
	rate     uint32
	channels uint32
	bps      int
	frames   uint64
	pos      uint64
}

// Open opens path and reads its WAV header.
func Open(path string) (*Source, error) {
	s := &Source{path: path}
	if err := s.reopen(); err != nil {
		return nil, err
	}

	format, err := s.reader.Format()
	if err != nil {
		s.file.Close()
		return nil, source.Wrap(source.KindFormatCorrupt, "wav.Open", err)
	}
	if format.AudioFormat != wav.AudioFormatPCM {
		s.file.Close()
		return nil, source.Wrap(source.KindFormatCorrupt, "wav.Open", fmt.Errorf("unsupported WAV audio format %d, want PCM", format.AudioFormat))
	}

	s.rate = format.SampleRate
	s.channels = uint32(format.NumChannels)
	s.bps = int(format.BitsPerSample)

	frames, err := countFrames(s.path)
	if err != nil {
		s.file.Close()
		return nil, err
	}
	s.frames = frames

	return s, nil
}

func (s *Source) reopen() error {
	f, err := os.Open(s.path)
	if err != nil {
		return source.Wrap(source.KindIO, "wav.reopen", err)
	}
	s.file = f
	s.reader = wav.NewReader(f)
	s.pos = 0
	return nil
}

// countFrames decodes the file once, end to end, to establish its exact
// frame count; go-wav does not expose one directly. Construction-time
// only, never called from the disk thread's steady-state path.
func countFrames(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, source.Wrap(source.KindIO, "wav.countFrames", err)
	}
	defer f.Close()

	r := wav.NewReader(f)
	if _, err := r.Format(); err != nil {
		return 0, source.Wrap(source.KindFormatCorrupt, "wav.countFrames", err)
	}

	var total uint64
	for {
		samples, err := r.ReadSamples(4096)
		total += uint64(len(samples))
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, source.Wrap(source.KindFormatCorrupt, "wav.countFrames", err)
		}
		if len(samples) == 0 {
			break
		}
	}
	return total, nil
}

func (s *Source) SampleRate() uint32 { return s.rate }
func (s *Source) Channels() uint32   { return s.channels }
func (s *Source) Frames() uint64     { return s.frames }

// Seek moves the decode position to frame by reopening the file and
// decoding forward, since go-wav offers no random access.
func (s *Source) Seek(frame uint64) error {
	if err := s.file.Close(); err != nil {
		return source.Wrap(source.KindIO, "wav.Seek", err)
	}
	if err := s.reopen(); err != nil {
		return err
	}
	if _, err := s.reader.Format(); err != nil {
		return source.Wrap(source.KindFormatCorrupt, "wav.Seek", err)
	}

	remaining := frame
	for remaining > 0 {
		chunk := remaining
		if chunk > 4096 {
			chunk = 4096
		}
		samples, err := s.reader.ReadSamples(int(chunk))
		if err != nil && err != io.EOF {
			return source.Wrap(source.KindFormatCorrupt, "wav.Seek", err)
		}
		remaining -= uint64(len(samples))
		if len(samples) == 0 {
			break
		}
	}
	s.pos = frame
	return nil
}

// Fill decodes up to blocksize-offset frames starting at the decoder's
// current position and channel-maps them additively into out.
func (s *Source) Fill(channelMap []source.ChannelDest, blocksize, offset int, out [][]float32) error {
	n := blocksize - offset
	if n <= 0 {
		return nil
	}

	samples, err := s.reader.ReadSamples(n)
	if err != nil && err != io.EOF {
		return source.Wrap(source.KindFormatCorrupt, "wav.Fill", err)
	}

	scale := sampleScale(s.bps)
	for i, sm := range samples {
		for ch := 0; ch < int(s.channels); ch++ {
			if ch >= len(sm.Values) {
				continue
			}
			dest := channelMap[ch]
			if !dest.Keep {
				continue
			}
			out[dest.Channel][offset+i] += float32(sm.Values[ch]) / scale
		}
	}
	s.pos += uint64(len(samples))
	return nil
}

func sampleScale(bps int) float32 {
	switch bps {
	case 8:
		return 128
	case 16:
		return 32768
	case 24:
		return 8388608
	case 32:
		return 2147483648
	default:
		return 32768
	}
}

func (s *Source) Close() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("wav.Close: %w", err)
	}
	return nil
}
