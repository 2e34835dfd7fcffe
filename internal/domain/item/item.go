// Package item provides the queued media item entity.
package item

import (
	"regexp"
	"time"
)

// remotePattern matches references that must be fetched before playback.
var remotePattern = regexp.MustCompile(`^https?://`)

// Item represents one entry in the playback queue.
//
// Reference is the string the operator supplied (remote URL or local path)
// and is never rewritten. Source is filled in once a remote reference has
// been fetched to local storage, so a loop replay reuses the fetched copy
// instead of downloading again.
type Item struct {
	ID        string    // Short human-typable id (e.g. "417qz")
	Reference string    // Operator-supplied URL or local path
	Source    string    // Resolved local path ("" until resolved/fetched)
	AddedAt   time.Time // Time when added to queue
}

// Playable returns the string to hand to the transmission session:
// the resolved source if one exists, otherwise the raw reference.
func (i *Item) Playable() string {
	if i.Source != "" {
		return i.Source
	}
	return i.Reference
}

// IsRemote reports whether the item's reference needs fetching.
func (i *Item) IsRemote() bool {
	return IsRemote(i.Reference)
}

// IsRemote reports whether a reference matches a recognized remote scheme.
func IsRemote(reference string) bool {
	return remotePattern.MatchString(reference)
}
