package resolve

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"

	"cueloop/internal/domain/item"
)

// FileResolver resolves local path references by verifying they exist.
type FileResolver struct{}

// NewFileResolver creates a new local file resolver.
func NewFileResolver() *FileResolver {
	return &FileResolver{}
}

func (r *FileResolver) Name() string {
	return "file"
}

func (r *FileResolver) Supports(reference string) bool {
	return !item.IsRemote(reference)
}

func (r *FileResolver) Resolve(ctx context.Context, reference string) (string, error) {
	info, err := os.Stat(reference)
	if err != nil {
		return "", errors.Wrapf(err, "local file %q", reference)
	}
	if info.IsDir() {
		return "", errors.Newf("local file %q is a directory", reference)
	}
	return reference, nil
}
