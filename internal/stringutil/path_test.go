package stringutil

import "testing"

func TestDotPath(t *testing.T) {
	tests := []struct {
		pointer, field, want string
	}{
		{"", "title", "title"},
		{"/", "title", "title"},
		{"/album", "title", "album.title"},
		{"/album/tracks/0", "", "album.tracks.0"},
		{"/a~1b", "", "a/b"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := DotPath(tt.pointer, tt.field); got != tt.want {
			t.Errorf("DotPath(%q, %q) = %q, want %q", tt.pointer, tt.field, got, tt.want)
		}
	}
}
