package vorbis

import (
	"errors"
	"testing"

	"trackstreamer/pkg/source"
)

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("does-not-exist.ogg")
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
