package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantOK    bool
		wantKind  Kind
		wantValue string
	}{
		{
			name:      "uri form track",
			line:      "spotify:track:abc123",
			wantOK:    true,
			wantKind:  KindTrack,
			wantValue: "abc123",
		},
		{
			name:      "url form album",
			line:      "https://open.spotify.com/album/xyz789",
			wantOK:    true,
			wantKind:  KindAlbum,
			wantValue: "xyz789",
		},
		{
			name:      "url form playlist with query",
			line:      "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=foo",
			wantOK:    true,
			wantKind:  KindPlaylist,
			wantValue: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:      "show uri",
			line:      "spotify:show:4rOoJ6Egrf8K2IrywzwOMk",
			wantOK:    true,
			wantKind:  KindShow,
			wantValue: "4rOoJ6Egrf8K2IrywzwOMk",
		},
		{
			name:      "episode uri",
			line:      "spotify:episode:512ojhOuo1ktJprKbVcKyQ",
			wantOK:    true,
			wantKind:  KindEpisode,
			wantValue: "512ojhOuo1ktJprKbVcKyQ",
		},
		{
			name:   "no recognized kind token",
			line:   "hello world",
			wantOK: false,
		},
		{
			name:   "empty line",
			line:   "",
			wantOK: false,
		},
		{
			name:   "artist is not a supported kind",
			line:   "spotify:artist:abc123",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := Parse(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKind, id.Kind)
				assert.Equal(t, tt.wantValue, id.Value)
			}
		})
	}
}

func TestIDEquality(t *testing.T) {
	// The same track parsed from URI and URL forms must compare equal
	// so set membership deduplicates across sources.
	a, ok := Parse("spotify:track:abc123")
	assert.True(t, ok)
	b, ok := Parse("https://open.spotify.com/track/abc123")
	assert.True(t, ok)
	assert.Equal(t, a, b)
}

func TestURI(t *testing.T) {
	id := ID{Kind: KindTrack, Value: "abc123"}
	assert.Equal(t, "spotify:track:abc123", id.URI())
}
