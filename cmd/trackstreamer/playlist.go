package main

import (
	"fmt"

	"trackstreamer/pkg/loader"
	"trackstreamer/pkg/source"
)

// buildPlaylist loads each file in order and lays them back to back on the
// output timeline: file i starts exactly where file i-1 ends. Every
// source is loaded (and, if needed, resampled) to sampleRate so the
// playlist's frame numbers share one clock.
func buildPlaylist(files []string, sampleRate uint32, outputChannels int) (*source.Playlist, uint64, error) {
	entries := make([]source.PlaylistEntry, 0, len(files))
	var cursor uint64

	for _, f := range files {
		src, err := loader.Load(f, sampleRate)
		if err != nil {
			return nil, 0, fmt.Errorf("loading %s: %w", f, err)
		}

		end := cursor + src.Frames()
		entries = append(entries, source.PlaylistEntry{
			Start:      cursor,
			End:        &end,
			Source:     src,
			ChannelMap: identityChannelMap(int(src.Channels()), outputChannels),
		})
		cursor = end
	}

	pl, err := source.NewPlaylist(entries, outputChannels)
	if err != nil {
		for _, e := range entries {
			e.Source.Close()
		}
		return nil, 0, fmt.Errorf("building playlist: %w", err)
	}
	return pl, cursor, nil
}

// identityChannelMap routes input channel i to output channel i for the
// channels the two have in common, dropping any input channels beyond
// outputChannels. There is no mixing bus (spec Non-goal), so a source
// with fewer channels than the output simply leaves the remaining output
// channels untouched by this entry.
func identityChannelMap(srcChannels, outputChannels int) []source.ChannelDest {
	m := make([]source.ChannelDest, srcChannels)
	for i := range m {
		if i < outputChannels {
			m[i] = source.To(i)
		} else {
			m[i] = source.Drop()
		}
	}
	return m
}
