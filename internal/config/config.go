// Package config loads knoldeck's settings from flags, environment and an
// optional YAML file.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/knoldeck/internal/fsrs"
	"github.com/conorfennell/knoldeck/internal/validation"
)

// EnvPrefix prefixes environment variables, e.g. KNOLDECK_DB or
// KNOLDECK_FSRS__DESIRED_RETENTION.
const EnvPrefix = "KNOLDECK_"

type Config struct {
	DB        string      `koanf:"db" validate:"required"`
	Addr      string      `koanf:"addr" validate:"required"`
	LogLevel  string      `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string      `koanf:"log_format" validate:"oneof=json text"`
	Scheduler string      `koanf:"scheduler" validate:"oneof=fsrs leitner"`
	ReposDir  string      `koanf:"repos_dir" validate:"required"`
	Sources   []string    `koanf:"sources"`
	Leitner   LeitnerConf `koanf:"leitner"`
	FSRS      fsrs.Params `koanf:"fsrs"`
}

type LeitnerConf struct {
	Boxes int `koanf:"boxes" validate:"gte=1,lte=16"`
}

// Flags returns the command-line flags config keys can be set from.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("knoldeck", pflag.ContinueOnError)
	f.String("config", "", "Path to a YAML config file")
	f.String("db", "knoldeck.db", "Path to the SQLite database file")
	f.String("addr", ":8080", "Address the review API listens on")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.String("log-format", "text", "Log format: json or text")
	f.String("scheduler", "fsrs", "Scheduling policy: fsrs or leitner")
	f.String("repos-dir", "repos", "Directory git sources are cloned into")
	f.StringSlice("sources", nil, "Deck sources to sync, local directories or git URLs")
	f.Int("leitner.boxes", 5, "Number of Leitner boxes")
	return f
}

// Load builds the configuration from defaults, the config file named by the
// --config flag, KNOLDECK_ environment variables and explicitly set flags,
// later layers overriding earlier ones.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := fsrs.DefaultParams()
	for key, val := range map[string]float64{
		"fsrs.a":                 defaults.A,
		"fsrs.b":                 defaults.B,
		"fsrs.c":                 defaults.C,
		"fsrs.d":                 defaults.D,
		"fsrs.desired_retention": defaults.DesiredRetention,
	} {
		if err := k.Set(key, val); err != nil {
			return nil, err
		}
	}

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Flags set on the command line win over everything else; the defaults
	// of unset flags only fill keys no other layer provided.
	err = k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
		return strings.ReplaceAll(fl.Name, "-", "_"), posflag.FlagVal(f, fl)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	v, err := validation.New("koanf")
	if err != nil {
		return nil, err
	}
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Parse parses args into f and loads the configuration.
func Parse(f *pflag.FlagSet, args []string) (*Config, error) {
	if err := f.Parse(args); err != nil {
		return nil, err
	}
	return Load(f)
}
