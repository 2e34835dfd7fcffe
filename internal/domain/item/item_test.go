package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRemote(t *testing.T) {
	tests := []struct {
		reference string
		remote    bool
	}{
		{"http://example.com/video.mp4", true},
		{"https://example.com/stream", true},
		{"local.mp4", false},
		{"/var/media/show.mkv", false},
		{"./relative/clip.webm", false},
		{"ftp://example.com/file", false},
		{"httpx://not-http", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.remote, IsRemote(tt.reference), "reference: %q", tt.reference)
	}
}

func TestPlayable(t *testing.T) {
	it := &Item{ID: "101ab", Reference: "http://example.com/video.mp4"}
	assert.Equal(t, "http://example.com/video.mp4", it.Playable())

	it.Source = "/tmp/cache/video.mp4"
	assert.Equal(t, "/tmp/cache/video.mp4", it.Playable())
}
