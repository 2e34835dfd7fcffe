// Package filter provides the admission chain for enqueue requests.
package filter

import (
	"context"

	"cueloop/internal/domain/item"
)

// Request represents an enqueue request to be validated.
type Request struct {
	Reference string      // The reference the operator wants to queue
	Pending   []item.Item // Snapshot of the pending queue at check time
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "queue_limit", "duplicate_reference"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for enqueue admission filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates the filter configuration.
	ValidateConfig(settings map[string]any) error
	// Check performs the filter check.
	Check(ctx context.Context, req Request) Result
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}
