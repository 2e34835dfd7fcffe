package queue

import (
	"fmt"
	"math/rand/v2"
)

const idLetters = "abcdefghijklmnopqrstuvwxyz"

// newID generates a short human-typable id: a three-digit numeric segment
// plus a two-letter suffix, e.g. "417qz". Uniqueness is best-effort random
// with a collision check against the template via taken; after a bounded
// number of retries a colliding id is returned anyway (the space is large
// enough that this only matters for pathological queue sizes).
func newID(taken func(string) bool) string {
	var id string
	for range 16 {
		id = fmt.Sprintf("%03d%c%c",
			rand.IntN(1000),
			idLetters[rand.IntN(len(idLetters))],
			idLetters[rand.IntN(len(idLetters))],
		)
		if !taken(id) {
			return id
		}
	}
	return id
}
