package swrkernel

import "testing"

func TestProcessProducesOutput(t *testing.T) {
	k, err := New(44100, 48000, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kernel := k.(*Kernel)
	defer kernel.Close()

	in := make([]float32, 1024)
	for i := range in {
		in[i] = 0.1
	}

	out, err := kernel.Process(in, int(float64(len(in))*48000/44100), false)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	out2, err := kernel.Process(nil, 0, true)
	if err != nil {
		t.Fatalf("Process(flush): %v", err)
	}

	if len(out)+len(out2) == 0 {
		t.Errorf("expected some resampled output across the two calls")
	}
}

func TestResetRebuildsKernel(t *testing.T) {
	k, err := New(44100, 44100, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kernel := k.(*Kernel)

	if err := kernel.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if kernel.closed {
		t.Errorf("kernel should be usable immediately after Reset")
	}
	if err := kernel.Close(); err != nil {
		t.Fatalf("Close after Reset: %v", err)
	}
}
