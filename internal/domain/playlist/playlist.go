// Package playlist provides M3U playlist parsing for batch enqueueing.
package playlist

import (
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// Parse reads an M3U/plain-text playlist and returns the media references
// it contains, in order. Blank lines and `#` directive lines (#EXTM3U,
// #EXTINF, comments) are skipped.
func Parse(r io.Reader) ([]string, error) {
	var refs []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read playlist")
	}

	if len(refs) == 0 {
		return nil, errors.New("playlist contains no entries")
	}
	return refs, nil
}
