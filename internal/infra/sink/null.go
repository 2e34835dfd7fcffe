package sink

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"cueloop/internal/app/orchestrator"
)

// NullConfig represents the configuration for the null sink.
type NullConfig struct {
	ItemDelayMs int `mapstructure:"item_delay_ms" default:"0" validate:"gte=0"`
}

// NullSink discards everything. Useful for dry runs and tests: each
// transmission "plays" for the configured delay and succeeds.
type NullSink struct {
	config NullConfig
}

// NewNullSink creates a null sink from settings.
func NewNullSink(settings map[string]any) (*NullSink, error) {
	var config NullConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &config,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	return &NullSink{config: config}, nil
}

func (s *NullSink) Acquire(ctx context.Context) (orchestrator.Session, error) {
	return &nullSession{delay: time.Duration(s.config.ItemDelayMs) * time.Millisecond}, nil
}

type nullSession struct {
	delay time.Duration
}

func (s *nullSession) Transmit(ctx context.Context, source string) error {
	zlog.Info().Msgf("sink: null transmit: source=%s delay=%v", source, s.delay)
	if s.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *nullSession) Close() error {
	return nil
}
