// Package loader opens an audio file into a source.AudioSource, trying
// each registered decoder in turn and wrapping the result in a resampler
// when its native rate does not match the target rate.
package loader

import (
	"fmt"
	"strings"

	"trackstreamer/pkg/resampler"
	"trackstreamer/pkg/resampler/swrkernel"
	"trackstreamer/pkg/source"
	"trackstreamer/pkg/source/flac"
	"trackstreamer/pkg/source/vorbis"
	"trackstreamer/pkg/source/wav"
)

// decoderAttempt opens path with one concrete decoder.
type decoderAttempt struct {
	name string
	open func(path string) (source.AudioSource, error)
}

var decoders = []decoderAttempt{
	{"vorbis", func(path string) (source.AudioSource, error) { return vorbis.Open(path) }},
	{"wav", func(path string) (source.AudioSource, error) { return wav.Open(path) }},
	{"flac", func(path string) (source.AudioSource, error) { return flac.Open(path) }},
}

// LoadError aggregates every decoder's failure when none could open a file.
type LoadError struct {
	Path    string
	Reasons map[string]error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "loader: %s: no decoder accepted the file", e.Path)
	for _, d := range decoders {
		if err, ok := e.Reasons[d.name]; ok {
			fmt.Fprintf(&b, "; %s: %v", d.name, err)
		}
	}
	return b.String()
}

// Load opens path with the first decoder that accepts it (in fixed order:
// Vorbis, WAV, FLAC), then wraps the result in a resampler if its native
// sample rate differs from targetRate.
func Load(path string, targetRate uint32) (source.AudioSource, error) {
	reasons := map[string]error{}

	for _, d := range decoders {
		src, err := d.open(path)
		if err != nil {
			reasons[d.name] = err
			continue
		}
		if src.SampleRate() == targetRate {
			return src, nil
		}
		resampled, err := resampler.New(src, targetRate, swrkernel.New)
		if err != nil {
			src.Close()
			return nil, err
		}
		return resampled, nil
	}

	return nil, source.Wrap(source.KindLoadExhausted, "loader.Load", &LoadError{Path: path, Reasons: reasons})
}
