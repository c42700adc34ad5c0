package resampler

import (
	"testing"

	"trackstreamer/pkg/source"
)

// constSource yields a constant value on every channel/frame, up to frames
// total, then nothing. It never errors.
type constSource struct {
	rate, channels uint32
	frames         uint64
	value          float32
	pos            uint64
}

func (s *constSource) SampleRate() uint32 { return s.rate }
func (s *constSource) Channels() uint32   { return s.channels }
func (s *constSource) Frames() uint64     { return s.frames }
func (s *constSource) Seek(frame uint64) error {
	s.pos = frame
	return nil
}
func (s *constSource) Fill(channelMap []source.ChannelDest, blocksize, offset int, out [][]float32) error {
	n := blocksize - offset
	remaining := s.frames - s.pos
	if uint64(n) > remaining {
		n = int(remaining)
	}
	for i := 0; i < n; i++ {
		for ch, dest := range channelMap {
			if !dest.Keep {
				continue
			}
			_ = ch
			out[dest.Channel][offset+i] += s.value
		}
	}
	s.pos += uint64(n)
	return nil
}
func (s *constSource) Close() error { return nil }

// passthroughKernel returns its input unchanged, simulating a 1:1
// resampling ratio so Source's staging logic can be tested in isolation.
type passthroughKernel struct{}

func (passthroughKernel) Process(in []float32, outCap int, endOfInput bool) ([]float32, error) {
	out := make([]float32, len(in))
	copy(out, in)
	return out, nil
}
func (passthroughKernel) Reset() error { return nil }
func (passthroughKernel) Close() error { return nil }

func passthroughFactory(inRate, outRate, channels int) (Kernel, error) {
	return passthroughKernel{}, nil
}

func TestSourceFramesScalesByRatio(t *testing.T) {
	inner := &constSource{rate: 22050, channels: 1, frames: 1000, value: 0.5}
	s, err := New(inner, 44100, passthroughFactory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Frames() != 2000 {
		t.Errorf("Frames() = %d, want 2000", s.Frames())
	}
	if s.SampleRate() != 44100 {
		t.Errorf("SampleRate() = %d, want 44100", s.SampleRate())
	}
}

func TestSourceFillPassthrough(t *testing.T) {
	inner := &constSource{rate: 44100, channels: 1, frames: 4096, value: 0.25}
	s, err := New(inner, 44100, passthroughFactory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := [][]float32{make([]float32, 64)}
	if err := s.Fill([]source.ChannelDest{source.To(0)}, 64, 0, out); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	for i, v := range out[0] {
		if v != 0.25 {
			t.Fatalf("out[0][%d] = %v, want 0.25", i, v)
		}
	}
}

func TestSourceFillStopsAtExhaustion(t *testing.T) {
	inner := &constSource{rate: 44100, channels: 1, frames: 10, value: 1}
	s, err := New(inner, 44100, passthroughFactory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := [][]float32{make([]float32, 64)}
	if err := s.Fill([]source.ChannelDest{source.To(0)}, 64, 0, out); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	for i := 0; i < 10; i++ {
		if out[0][i] != 1 {
			t.Errorf("out[0][%d] = %v, want 1", i, out[0][i])
		}
	}
	for i := 10; i < 64; i++ {
		if out[0][i] != 0 {
			t.Errorf("out[0][%d] = %v, want 0 (source exhausted)", i, out[0][i])
		}
	}
}
