package filter

import (
	"context"
	"strings"
)

// DuplicateReferenceFilter rejects a reference that is already pending.
// A skipped or played item no longer counts: only the pending queue is
// consulted, so looped templates can still contain repeats.
type DuplicateReferenceFilter struct{}

func (f *DuplicateReferenceFilter) Name() string {
	return "duplicate_reference_filter"
}

func (f *DuplicateReferenceFilter) Description() string {
	return "Rejects a reference that is already waiting in the queue"
}

func (f *DuplicateReferenceFilter) ReturnCodes() []string {
	return []string{"duplicate_reference"}
}

func (f *DuplicateReferenceFilter) ValidateConfig(settings map[string]any) error {
	// No settings
	return nil
}

func (f *DuplicateReferenceFilter) Check(ctx context.Context, req Request) Result {
	want := strings.TrimSpace(req.Reference)
	for _, it := range req.Pending {
		if it.Reference == want {
			return Reject("duplicate_reference")
		}
	}
	return Accept()
}

func init() {
	Register("duplicate_reference_filter", func() Filter {
		return &DuplicateReferenceFilter{}
	})
}
