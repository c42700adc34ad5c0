// Package swrkernel provides the default resampler.Kernel, backed by
// github.com/zaf/resample (SoXR bindings) — the same resampling library
// the teacher's own transform command uses (cmd/transform.go). SoXR's Go
// binding is push-based over an io.Writer sink and works in 16-bit PCM;
// this package adapts that to the pull-based float32 contract
// pkg/resampler.Kernel requires, which costs a documented 16-bit
// quantization step on every resampled sample.
package swrkernel

import (
	"bytes"
	"encoding/binary"
	"fmt"

	soxr "github.com/zaf/resample"

	"trackstreamer/pkg/resampler"
)

// Kernel adapts a soxr.Resampler to the resampler.Kernel interface.
type Kernel struct {
	sink     *bytes.Buffer
	r        *soxr.Resampler
	inRate   float64
	outRate  float64
	channels int
	closed   bool
}

// New is a resampler.KernelFactory backed by SoXR at high quality.
func New(inRate, outRate, channels int) (resampler.Kernel, error) {
	return build(float64(inRate), float64(outRate), channels)
}

func build(inRate, outRate float64, channels int) (*Kernel, error) {
	sink := &bytes.Buffer{}
	r, err := soxr.New(sink, inRate, outRate, channels, soxr.I16, soxr.HighQ)
	if err != nil {
		return nil, fmt.Errorf("swrkernel: %w", err)
	}
	return &Kernel{sink: sink, r: r, inRate: inRate, outRate: outRate, channels: channels}, nil
}

// Process converts in to 16-bit PCM, pushes it through SoXR, and converts
// whatever output SoXR has produced back to float32. outCap is advisory;
// SoXR buffers internally and may return more or fewer frames than
// requested on any single call.
func (k *Kernel) Process(in []float32, outCap int, endOfInput bool) ([]float32, error) {
	pcm := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s*32767)))
	}

	if len(pcm) > 0 {
		if _, err := k.r.Write(pcm); err != nil {
			return nil, fmt.Errorf("swrkernel: write: %w", err)
		}
	}
	if endOfInput && !k.closed {
		if err := k.r.Close(); err != nil {
			return nil, fmt.Errorf("swrkernel: close: %w", err)
		}
		k.closed = true
	}

	data := k.sink.Bytes()
	k.sink.Reset()

	frames := len(data) / 2
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(v) / 32768
	}
	return out, nil
}

// Reset discards buffered state and rebuilds the underlying SoXR instance,
// since SoXR's Go binding offers no in-place reset.
func (k *Kernel) Reset() error {
	if !k.closed {
		k.r.Close()
	}
	fresh, err := build(k.inRate, k.outRate, k.channels)
	if err != nil {
		return err
	}
	*k = *fresh
	return nil
}

func (k *Kernel) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	return k.r.Close()
}
