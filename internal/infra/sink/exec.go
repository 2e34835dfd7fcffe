package sink

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"cueloop/internal/app/orchestrator"
)

// ExecConfig represents the configuration for the exec sink.
type ExecConfig struct {
	Command string   `mapstructure:"command" default:"ffmpeg"`
	Args    []string `mapstructure:"args" default:"[\"-re\",\"-i\",\"{source}\",\"-c\",\"copy\",\"-f\",\"flv\",\"{target}\"]"`
	Target  string   `mapstructure:"target" validate:"required"`
}

// ExecSink transmits items by running an external encoder/pusher command
// (ffmpeg by default) per item. The command's lifetime is the
// transmission: killing it is the cancellation signal.
type ExecSink struct {
	config ExecConfig
}

// NewExecSink creates an exec sink from settings.
func NewExecSink(settings map[string]any) (*ExecSink, error) {
	var config ExecConfig

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

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &ExecSink{config: config}, nil
}

// Acquire verifies the configured command is runnable and hands out a
// session bound to it.
func (s *ExecSink) Acquire(ctx context.Context) (orchestrator.Session, error) {
	path, err := exec.LookPath(s.config.Command)
	if err != nil {
		return nil, errors.Wrapf(err, "command %q not found", s.config.Command)
	}

	zlog.Info().Msgf("sink: session acquired: command=%s target=%s", path, redactTarget(s.config.Target))
	return &execSession{
		command: path,
		args:    s.config.Args,
		target:  s.config.Target,
	}, nil
}

// execSession runs one command invocation per transmitted item.
type execSession struct {
	command string
	args    []string
	target  string
}

func (s *execSession) Transmit(ctx context.Context, source string) error {
	args := make([]string, len(s.args))
	for i, a := range s.args {
		a = strings.ReplaceAll(a, "{source}", source)
		a = strings.ReplaceAll(a, "{target}", s.target)
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, s.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	zlog.Debug().Msgf("sink: transmitting: source=%s", source)
	err := cmd.Run()
	if ctx.Err() != nil {
		// The process was killed on our behalf; report the cancellation,
		// not the resulting exit status.
		return ctx.Err()
	}
	if err != nil {
		return errors.Wrapf(err, "transmit %q failed: %s", source, tail(stderr.String(), 512))
	}
	return nil
}

func (s *execSession) Close() error {
	zlog.Info().Msgf("sink: session released: target=%s", redactTarget(s.target))
	return nil
}

// tail returns at most n trailing bytes of s.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// redactTarget hides everything after the last path separator, since
// stream targets commonly end in a secret stream key.
func redactTarget(target string) string {
	i := strings.LastIndex(target, "/")
	if i < 0 || i == len(target)-1 {
		return target
	}
	return target[:i+1] + "****"
}
