package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// PipelineDefaults are operator run defaults read from an optional file. Command-line flags
// override them. A zero RosterMaxAge or Lookahead inherits ROSTER_MAX_AGE or FIXTURE_LOOKAHEAD.
type PipelineDefaults struct {
	DryRun       bool          `mapstructure:"dry_run"`
	FixturesOnly bool          `mapstructure:"fixtures_only"`
	Leagues      []string      `mapstructure:"leagues" validate:"dive,required"`
	PushAll      bool          `mapstructure:"push_all"`
	Strict       bool          `mapstructure:"strict"`
	Parallelism  int           `mapstructure:"parallelism" validate:"gte=1,lte=32"`
	RosterMaxAge time.Duration `mapstructure:"roster_max_age" validate:"gte=0"`
	Lookahead    time.Duration `mapstructure:"lookahead" validate:"gte=0"`
}

var defaultsValidator = validator.New()

// LoadPipelineDefaults reads path (JSON, YAML or TOML by extension) on top of built-in
// defaults. An empty path returns the built-in defaults. PIPELINE_* environment variables
// override file values.
func LoadPipelineDefaults(path string) (PipelineDefaults, error) {
	v := viper.New()
	v.SetDefault("dry_run", false)
	v.SetDefault("fixtures_only", false)
	v.SetDefault("leagues", []string{})
	v.SetDefault("push_all", false)
	v.SetDefault("strict", false)
	v.SetDefault("parallelism", 2)
	v.SetDefault("roster_max_age", "0s")
	v.SetDefault("lookahead", "0s")

	v.SetEnvPrefix("PIPELINE")
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return PipelineDefaults{}, fmt.Errorf("read pipeline defaults %s: %w", path, err)
		}
	}

	var out PipelineDefaults
	if err := v.Unmarshal(&out); err != nil {
		return PipelineDefaults{}, fmt.Errorf("decode pipeline defaults: %w", err)
	}
	for i, league := range out.Leagues {
		out.Leagues[i] = strings.TrimSpace(league)
	}
	if err := defaultsValidator.Struct(out); err != nil {
		return PipelineDefaults{}, fmt.Errorf("invalid pipeline defaults: %w", err)
	}
	return out, nil
}
