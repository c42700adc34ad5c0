package loader

import (
	"errors"
	"strings"
	"testing"

	"trackstreamer/pkg/source"
)

func TestLoadMissingFileAggregatesReasons(t *testing.T) {
	_, err := Load("does-not-exist.audio", 44100)
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}

	var srcErr *source.Error
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected a *source.Error, got %T", err)
	}
	if srcErr.Kind != source.KindLoadExhausted {
		t.Errorf("got kind %v, want KindLoadExhausted", srcErr.Kind)
	}

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected a *LoadError in the chain, got %v", err)
	}
	for _, d := range decoders {
		if _, ok := loadErr.Reasons[d.name]; !ok {
			t.Errorf("expected a recorded reason for decoder %q", d.name)
		}
	}

	msg := err.Error()
	if !strings.Contains(msg, "does-not-exist.audio") {
		t.Errorf("error message should name the path: %q", msg)
	}
}
