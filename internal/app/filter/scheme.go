package filter

import (
	"context"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"cueloop/internal/domain/item"
)

// SchemeConfig represents the configuration for SchemeFilter.
type SchemeConfig struct {
	AllowedSchemes  []string `yaml:"allowed_schemes" mapstructure:"allowed_schemes" default:"[\"http\",\"https\"]" validate:"min=1"`
	AllowLocalPaths bool     `yaml:"allow_local_paths" mapstructure:"allow_local_paths" default:"true"`
}

// SchemeFilter restricts which URL schemes (and whether local paths) may
// be enqueued.
type SchemeFilter struct {
	config *SchemeConfig
}

// NewSchemeFilter creates a new scheme filter.
func NewSchemeFilter() *SchemeFilter {
	return &SchemeFilter{}
}

func (f *SchemeFilter) Name() string {
	return "scheme_filter"
}

func (f *SchemeFilter) Description() string {
	return "Restricts which URL schemes and local paths may be enqueued"
}

func (f *SchemeFilter) ReturnCodes() []string {
	return []string{"unsupported_scheme"}
}

func (f *SchemeFilter) ValidateConfig(settings map[string]any) error {
	var config SchemeConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &config,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	f.config = &config
	zlog.Info().Msgf("scheme filter config: %+v", config)
	return nil
}

func (f *SchemeFilter) Check(ctx context.Context, req Request) Result {
	if f.config == nil {
		return Accept()
	}

	if !item.IsRemote(req.Reference) {
		// A reference without a recognized remote scheme is treated as a
		// local path.
		if u, err := url.Parse(req.Reference); err == nil && u.Scheme != "" && u.Scheme != "file" && len(u.Scheme) > 1 {
			return Reject("unsupported_scheme")
		}
		if !f.config.AllowLocalPaths {
			return Reject("unsupported_scheme")
		}
		return Accept()
	}

	u, err := url.Parse(req.Reference)
	if err != nil {
		return Reject("unsupported_scheme")
	}
	for _, s := range f.config.AllowedSchemes {
		if u.Scheme == s {
			return Accept()
		}
	}
	return Reject("unsupported_scheme")
}

func init() {
	Register("scheme_filter", func() Filter {
		return &SchemeFilter{}
	})
}
