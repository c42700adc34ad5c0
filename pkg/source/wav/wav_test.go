package wav

import (
	"errors"
	"testing"

	"trackstreamer/pkg/source"
)

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("does-not-exist.wav")
	if err == nil {
		t.Fatal("expected an error opening a missing file")
	}
	var srcErr *source.Error
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected a *source.Error, got %T", err)
	}
	if srcErr.Kind != source.KindIO {
		t.Errorf("got kind %v, want KindIO", srcErr.Kind)
	}
}

func TestSampleScale(t *testing.T) {
	tests := []struct {
		bps  int
		want float32
	}{
		{8, 128},
		{16, 32768},
		{24, 8388608},
		{32, 2147483648},
		{12, 32768}, // unsupported bps falls back to the 16-bit scale
	}
	for _, tt := range tests {
		if got := sampleScale(tt.bps); got != tt.want {
			t.Errorf("sampleScale(%d) = %v, want %v", tt.bps, got, tt.want)
		}
	}
}
