package resolve

import (
	"context"

	"cueloop/internal/domain/item"
	"cueloop/internal/infra/fetch"
)

// DownloadResolver resolves remote references by pre-fetching them to
// local storage. Fetching up front (rather than streaming the remote URL
// straight into the session) means a loop replay can reuse the local
// copy, and a flaky origin fails before a session slot is consumed.
type DownloadResolver struct {
	fetcher *fetch.Fetcher
}

// NewDownloadResolver creates a resolver backed by the given fetcher.
func NewDownloadResolver(fetcher *fetch.Fetcher) *DownloadResolver {
	return &DownloadResolver{fetcher: fetcher}
}

func (r *DownloadResolver) Name() string {
	return "download"
}

func (r *DownloadResolver) Supports(reference string) bool {
	return item.IsRemote(reference)
}

func (r *DownloadResolver) Resolve(ctx context.Context, reference string) (string, error) {
	return r.fetcher.Fetch(ctx, reference)
}
