package resolve

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Chain dispatches a reference to the first resolver that claims it.
// Resolution errors are per-item and propagate to the caller; the
// orchestrator treats them as skip-and-continue.
type Chain struct {
	resolvers []Resolver
}

// NewChain creates a new resolver chain.
func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers}
}

// Resolve resolves the reference through the chain.
func (c *Chain) Resolve(ctx context.Context, reference string) (string, error) {
	for _, r := range c.resolvers {
		if !r.Supports(reference) {
			continue
		}
		zlog.Debug().Msgf("resolve: using resolver: name=%s reference=%s", r.Name(), reference)
		source, err := r.Resolve(ctx, reference)
		if err != nil {
			return "", errors.Wrapf(err, "resolver %s failed", r.Name())
		}
		return source, nil
	}
	return "", errors.Wrapf(ErrUnresolvable, "reference %q", reference)
}
