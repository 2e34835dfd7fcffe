package playlist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := `#EXTM3U
#EXTINF:213,Some Artist - Some Title
http://example.com/stream/one.mp3

# a comment
/var/media/two.mp4
#EXTINF:-1,Live
https://example.com/live
`

	refs, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://example.com/stream/one.mp3",
		"/var/media/two.mp4",
		"https://example.com/live",
	}, refs)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(strings.NewReader("#EXTM3U\n\n# nothing here\n"))
	assert.Error(t, err)
}
