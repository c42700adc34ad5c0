// Package vorbis wraps github.com/jfreymuth/oggvorbis, a pure-Go Ogg
// Vorbis decoder, as a source.AudioSource.
package vorbis

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"trackstreamer/pkg/source"
)

// Source decodes an Ogg Vorbis file. Frames is computed once at Open time
// from the stream's reported length; Fill and Seek operate directly on the
// decoder's own position, since oggvorbis.Reader supports sample-accurate
// seeking natively.
type Source struct {
	file    *os.File
	reader  *oggvorbis.Reader
	rate    uint32
	channels uint32
	frames  uint64

	// scratch is reused across Fill calls to avoid per-block allocation on
	// the disk thread; it holds one interleaved read of decoded samples.
	scratch []float32
}

// Open opens path and reads its Vorbis headers.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, source.Wrap(source.KindIO, "vorbis.Open", err)
	}

	r, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, source.Wrap(source.KindFormatCorrupt, "vorbis.Open", err)
	}

	return &Source{
		file:     f,
		reader:   r,
		rate:     uint32(r.SampleRate()),
		channels: uint32(r.Channels()),
		frames:   uint64(r.Length()),
	}, nil
}

func (s *Source) SampleRate() uint32 { return s.rate }
func (s *Source) Channels() uint32   { return s.channels }
func (s *Source) Frames() uint64     { return s.frames }

// Seek moves the decode position to frame. frame past the end of the
// stream is clamped to the end by the underlying decoder; subsequent Fill
// calls then read nothing, which the disk driver treats as silence.
func (s *Source) Seek(frame uint64) error {
	if err := s.reader.SetPosition(int64(frame)); err != nil {
		return source.Wrap(source.KindUnseekableStream, "vorbis.Seek", err)
	}
	return nil
}

// Fill decodes up to blocksize-offset frames starting at the decoder's
// current position and channel-maps them additively into out.
func (s *Source) Fill(channelMap []source.ChannelDest, blocksize, offset int, out [][]float32) error {
	n := blocksize - offset
	if n <= 0 {
		return nil
	}
	need := n * int(s.channels)
	if cap(s.scratch) < need {
		s.scratch = make([]float32, need)
	}
	buf := s.scratch[:need]

	read, err := s.reader.Read(buf)
	if err != nil && err != io.EOF && read == 0 {
		return source.Wrap(source.KindFormatCorrupt, "vorbis.Fill", err)
	}
	framesRead := read / int(s.channels)

	for i := 0; i < framesRead; i++ {
		for ch := 0; ch < int(s.channels); ch++ {
			dest := channelMap[ch]
			if !dest.Keep {
				continue
			}
			out[dest.Channel][offset+i] += buf[i*int(s.channels)+ch]
		}
	}
	return nil
}

func (s *Source) Close() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("vorbis.Close: %w", err)
	}
	return nil
}
