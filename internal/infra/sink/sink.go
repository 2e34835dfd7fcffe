// Package sink provides transmission session implementations for the
// orchestrator's output side.
package sink

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"cueloop/internal/app/orchestrator"
	"cueloop/internal/infra/config"
)

// New creates a sink from configuration.
func New(cfg config.SinkConfig) (orchestrator.Sink, error) {
	zlog.Debug().Msgf("sink: creating sink: type=%s settings=%+v", cfg.Type, cfg.Settings)

	switch cfg.Type {
	case "exec":
		return NewExecSink(cfg.Settings)
	case "null":
		return NewNullSink(cfg.Settings)
	default:
		return nil, errors.Newf("unsupported sink type: %s", cfg.Type)
	}
}
