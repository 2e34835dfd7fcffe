// Package resolve turns queued references into locally playable sources.
package resolve

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrUnresolvable is returned when no resolver claims a reference.
var ErrUnresolvable = errors.New("reference is not resolvable")

// Resolver resolves one class of reference into a playable source.
type Resolver interface {
	// Name returns the resolver name (used in logs).
	Name() string
	// Supports reports whether this resolver claims the reference.
	Supports(reference string) bool
	// Resolve returns a playable source (a local path) for the reference.
	Resolve(ctx context.Context, reference string) (string, error)
}
