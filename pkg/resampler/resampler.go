// Package resampler adapts an inner source.AudioSource running at one
// sample rate into a source.AudioSource running at another, via a
// pluggable resampling Kernel. The default kernel lives in
// pkg/resampler/swrkernel and is backed by github.com/zaf/resample, the
// same resampling library the teacher's own transform command uses
// (cmd/transform.go).
package resampler

import (
	"trackstreamer/pkg/source"
)

// Kernel performs the actual sample-rate conversion on interleaved float32
// data. Process may buffer internally; it returns whatever output frames
// it has ready, which may be fewer than outCap, or more than one input
// chunk's worth once buffered latency drains. endOfInput tells the kernel
// no further input will arrive, so it should flush.
type Kernel interface {
	Process(in []float32, outCap int, endOfInput bool) ([]float32, error)
	Reset() error
	Close() error
}

// KernelFactory builds a fresh Kernel for one (inRate, outRate, channels)
// combination. Source calls it once, at construction; Seek returns the
// kernel to a clean state through Kernel.Reset instead.
type KernelFactory func(inRate, outRate, channels int) (Kernel, error)

const inputChunkFrames = 1024

// Source wraps inner, presenting its audio resampled to outRate.
type Source struct {
	inner  source.AudioSource
	kernel Kernel

	inRate, outRate uint32
	channels        uint32
	ratio           float64
	frames          uint64

	innerFrame uint64 // next inner frame Source.fetchMore will read
	innerDone  bool

	pending []float32 // resampled interleaved samples not yet consumed by Fill

	deinterleaved [][]float32 // scratch for inner.Fill, channels x inputChunkFrames
	interleaved   []float32   // scratch, inputChunkFrames x channels
	identityMap   []source.ChannelDest
}

// New wraps inner so it presents audio at outRate, building the resampling
// kernel via factory.
func New(inner source.AudioSource, outRate uint32, factory KernelFactory) (*Source, error) {
	inRate := inner.SampleRate()
	channels := inner.Channels()

	kernel, err := factory(int(inRate), int(outRate), int(channels))
	if err != nil {
		return nil, source.Wrap(source.KindResamplerInit, "resampler.New", err)
	}

	ratio := float64(outRate) / float64(inRate)

	identity := make([]source.ChannelDest, channels)
	for i := range identity {
		identity[i] = source.To(i)
	}

	deint := make([][]float32, channels)
	for i := range deint {
		deint[i] = make([]float32, inputChunkFrames)
	}

	return &Source{
		inner:         inner,
		kernel:        kernel,
		inRate:        inRate,
		outRate:       outRate,
		channels:      channels,
		ratio:         ratio,
		frames:        uint64(float64(inner.Frames()) * ratio),
		deinterleaved: deint,
		interleaved:   make([]float32, inputChunkFrames*int(channels)),
		identityMap:   identity,
	}, nil
}

func (s *Source) SampleRate() uint32 { return s.outRate }
func (s *Source) Channels() uint32   { return s.channels }

// Frames reports floor(inner.Frames() * ratio). This is approximate: the
// number of frames the kernel actually produces may differ by one.
func (s *Source) Frames() uint64 { return s.frames }

// Seek approximates the requested output frame by seeking the inner source
// to the corresponding input frame and discarding the kernel's buffered
// state. Exactness is limited by the resampling ratio, matching the
// documented approximation in the resampling step generally (spec.md §4).
func (s *Source) Seek(frame uint64) error {
	innerFrame := uint64(float64(frame) / s.ratio)
	if err := s.inner.Seek(innerFrame); err != nil {
		return err
	}
	if err := s.kernel.Reset(); err != nil {
		return source.Wrap(source.KindResamplerInit, "resampler.Seek", err)
	}
	s.innerFrame = innerFrame
	s.innerDone = false
	s.pending = s.pending[:0]
	return nil
}

// fetchMore reads one chunk from the inner source, runs it through the
// kernel, and appends the kernel's output to pending.
func (s *Source) fetchMore() error {
	if s.innerDone {
		return nil
	}

	want := inputChunkFrames
	remaining := s.inner.Frames() - s.innerFrame
	if remaining < uint64(want) {
		want = int(remaining)
	}

	for _, ch := range s.deinterleaved {
		for i := range ch {
			ch[i] = 0
		}
	}

	if want > 0 {
		if err := s.inner.Fill(s.identityMap, want, 0, s.deinterleaved); err != nil {
			return err
		}
	}
	s.innerFrame += uint64(want)
	if s.innerFrame >= s.inner.Frames() {
		s.innerDone = true
	}

	interleaved := s.interleaved[:want*int(s.channels)]
	for i := 0; i < want; i++ {
		for ch := 0; ch < int(s.channels); ch++ {
			interleaved[i*int(s.channels)+ch] = s.deinterleaved[ch][i]
		}
	}

	outCap := int(float64(want)*s.ratio) + 2*int(s.channels)
	out, err := s.kernel.Process(interleaved, outCap, s.innerDone)
	if err != nil {
		return source.Wrap(source.KindResamplerProcess, "resampler.fetchMore", err)
	}
	s.pending = append(s.pending, out...)
	return nil
}

// Fill decodes up to blocksize-offset resampled frames and channel-maps
// them additively into out.
func (s *Source) Fill(channelMap []source.ChannelDest, blocksize, offset int, out [][]float32) error {
	n := blocksize - offset
	if n <= 0 {
		return nil
	}

	for len(s.pending) < n*int(s.channels) && !s.innerDone {
		if err := s.fetchMore(); err != nil {
			return err
		}
	}

	avail := len(s.pending) / int(s.channels)
	got := n
	if avail < got {
		got = avail
	}

	for i := 0; i < got; i++ {
		for ch := 0; ch < int(s.channels); ch++ {
			dest := channelMap[ch]
			if !dest.Keep {
				continue
			}
			out[dest.Channel][offset+i] += s.pending[i*int(s.channels)+ch]
		}
	}

	consumed := got * int(s.channels)
	s.pending = s.pending[:copy(s.pending, s.pending[consumed:])]
	return nil
}

func (s *Source) Close() error {
	if err := s.kernel.Close(); err != nil {
		return source.Wrap(source.KindResamplerProcess, "resampler.Close", err)
	}
	return s.inner.Close()
}
