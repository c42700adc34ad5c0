package source

import "testing"

type fakeSource struct {
	rate, channels uint32
	frames         uint64
}

func (f *fakeSource) SampleRate() uint32 { return f.rate }
func (f *fakeSource) Channels() uint32   { return f.channels }
func (f *fakeSource) Frames() uint64     { return f.frames }
func (f *fakeSource) Seek(uint64) error  { return nil }
func (f *fakeSource) Fill([]ChannelDest, int, int, [][]float32) error {
	return nil
}
func (f *fakeSource) Close() error { return nil }

func endAt(f uint64) *uint64 { return &f }

func TestNewPlaylistValidation(t *testing.T) {
	mono := &fakeSource{rate: 44100, channels: 1, frames: 1000}

	tests := []struct {
		name    string
		entries []PlaylistEntry
		wantErr bool
	}{
		{
			name: "ok",
			entries: []PlaylistEntry{
				{Start: 0, End: endAt(100), Source: mono, ChannelMap: []ChannelDest{To(0)}},
			},
		},
		{
			name: "end before start",
			entries: []PlaylistEntry{
				{Start: 100, End: endAt(50), Source: mono, ChannelMap: []ChannelDest{To(0)}},
			},
			wantErr: true,
		},
		{
			name: "start equal to end is a valid, always-empty entry",
			entries: []PlaylistEntry{
				{Start: 100, End: endAt(100), Source: mono, ChannelMap: []ChannelDest{To(0)}},
			},
		},
		{
			name: "channel map length mismatch",
			entries: []PlaylistEntry{
				{Start: 0, End: endAt(100), Source: mono, ChannelMap: []ChannelDest{To(0), To(1)}},
			},
			wantErr: true,
		},
		{
			name: "channel map out of range",
			entries: []PlaylistEntry{
				{Start: 0, End: endAt(100), Source: mono, ChannelMap: []ChannelDest{To(2)}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlaylist(tt.entries, 2)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPlaylist() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaylistActive(t *testing.T) {
	src := &fakeSource{rate: 44100, channels: 1, frames: 1000}

	entries := []PlaylistEntry{
		{Start: 0, End: endAt(4), Source: src, ChannelMap: []ChannelDest{To(0)}},   // [0,4)
		{Start: 4, End: endAt(8), Source: src, ChannelMap: []ChannelDest{To(0)}},   // [4,8)
		{Start: 2, End: nil, Source: src, ChannelMap: []ChannelDest{To(0)}},        // [2, inf)
		{Start: 10, End: endAt(10), Source: src, ChannelMap: []ChannelDest{To(0)}}, // empty: start==end
	}
	pl, err := NewPlaylist(entries, 2)
	if err != nil {
		t.Fatalf("NewPlaylist: %v", err)
	}

	cases := []struct {
		start, end uint64
		want       []int // indices into entries
	}{
		{0, 4, []int{0, 2}},
		{4, 8, []int{1, 2}},
		{8, 12, []int{2}},
		{10, 14, []int{2}}, // entry 3 (start==end) never active
	}

	for _, c := range cases {
		active := pl.Active(c.start, c.end)
		if len(active) != len(c.want) {
			t.Fatalf("Active(%d,%d): got %d entries, want %d", c.start, c.end, len(active), len(c.want))
		}
		for i, idx := range c.want {
			if active[i] != &pl.entries[idx] {
				t.Errorf("Active(%d,%d)[%d]: got entry %p, want entry %d (%p)", c.start, c.end, i, active[i], idx, &pl.entries[idx])
			}
		}
	}
}
