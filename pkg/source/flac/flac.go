// Package flac wraps github.com/drgolem/go-flac/flac as a source.AudioSource.
package flac

import (
	"encoding/binary"
	"fmt"

	goflac "github.com/drgolem/go-flac/flac"

	"trackstreamer/pkg/source"
)

const decodeBits = 16

// Source decodes a FLAC file via libFLAC bindings, always requesting
// 16-bit output (matching the teacher's own default). go-flac exposes no
// Seek or frame count, so Frames is established by a one-time decode pass
// at Open and Seek reopens the decoder and skips forward by decoding.
type Source struct {
	path     string
	decoder  *goflac.FlacDecoder
	rate     uint32
	channels uint32
	frames   uint64
	pos      uint64

	scratch []byte
}

// Open opens path, reads its format, and counts its total frames.
func Open(path string) (*Source, error) {
	s := &Source{path: path}
	if err := s.reopen(); err != nil {
		return nil, err
	}

	frames, err := countFrames(path)
	if err != nil {
		s.decoder.Close()
		s.decoder.Delete()
		return nil, err
	}
	s.frames = frames
	return s, nil
}

func (s *Source) reopen() error {
	dec, err := goflac.NewFlacFrameDecoder(decodeBits)
	if err != nil {
		return source.Wrap(source.KindIO, "flac.reopen", err)
	}
	if err := dec.Open(s.path); err != nil {
		dec.Delete()
		return source.Wrap(source.KindFormatCorrupt, "flac.reopen", err)
	}
	rate, channels, _ := dec.GetFormat()
	s.decoder = dec
	s.rate = uint32(rate)
	s.channels = uint32(channels)
	s.pos = 0
	return nil
}

// countFrames decodes the file once, end to end, to establish its exact
// frame count; construction-time only, never called from the disk thread's
// steady-state path.
func countFrames(path string) (uint64, error) {
	dec, err := goflac.NewFlacFrameDecoder(decodeBits)
	if err != nil {
		return 0, source.Wrap(source.KindIO, "flac.countFrames", err)
	}
	defer dec.Delete()
	if err := dec.Open(path); err != nil {
		return 0, source.Wrap(source.KindFormatCorrupt, "flac.countFrames", err)
	}
	defer dec.Close()

	_, channels, _ := dec.GetFormat()
	const chunk = 4096
	buf := make([]byte, chunk*channels*(decodeBits/8))

	var total uint64
	for {
		n, err := dec.DecodeSamples(chunk, buf)
		total += uint64(n)
		if err != nil {
			break
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

func (s *Source) SampleRate() uint32 { return s.rate }
func (s *Source) Channels() uint32   { return s.channels }
func (s *Source) Frames() uint64     { return s.frames }

// Seek moves the decode position to frame by reopening the file and
// decoding forward, since go-flac offers no random access.
func (s *Source) Seek(frame uint64) error {
	s.decoder.Close()
	s.decoder.Delete()
	if err := s.reopen(); err != nil {
		return err
	}

	const chunk = 4096
	buf := make([]byte, chunk*int(s.channels)*(decodeBits/8))
	remaining := frame
	for remaining > 0 {
		want := remaining
		if want > chunk {
			want = chunk
		}
		n, err := s.decoder.DecodeSamples(int(want), buf)
		remaining -= uint64(n)
		if err != nil || n == 0 {
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
	need := n * int(s.channels) * (decodeBits / 8)
	if cap(s.scratch) < need {
		s.scratch = make([]byte, need)
	}
	buf := s.scratch[:need]

	// DecodeSamples signals end-of-stream via a non-nil error with 0
	// samples decoded (confirmed by countFrames above, which treats any
	// error as end-of-stream); that is silence, not corruption.
	read, err := s.decoder.DecodeSamples(n, buf)
	if err != nil && read == 0 {
		return nil
	}

	for i := 0; i < read; i++ {
		for ch := 0; ch < int(s.channels); ch++ {
			dest := channelMap[ch]
			if !dest.Keep {
				continue
			}
			offsetBytes := (i*int(s.channels) + ch) * (decodeBits / 8)
			raw := int16(binary.LittleEndian.Uint16(buf[offsetBytes : offsetBytes+2]))
			out[dest.Channel][offset+i] += float32(raw) / 32768
		}
	}
	s.pos += uint64(read)
	return nil
}

func (s *Source) Close() error {
	if err := s.decoder.Close(); err != nil {
		s.decoder.Delete()
		return fmt.Errorf("flac.Close: %w", err)
	}
	s.decoder.Delete()
	return nil
}
