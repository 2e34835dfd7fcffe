package queue

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var idFormat = regexp.MustCompile(`^[0-9]{3}[a-z]{2}$`)

func TestNewIDFormat(t *testing.T) {
	for range 50 {
		id := newID(func(string) bool { return false })
		assert.Regexp(t, idFormat, id)
	}
}

func TestNewIDRetriesOnCollision(t *testing.T) {
	taken := map[string]bool{}

	// First generated id is marked taken, forcing at least one retry.
	calls := 0
	id := newID(func(candidate string) bool {
		calls++
		if calls == 1 {
			taken[candidate] = true
			return true
		}
		return taken[candidate]
	})

	assert.False(t, taken[id])
	assert.GreaterOrEqual(t, calls, 2)
}
