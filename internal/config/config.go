// Package config loads model and run settings from YAML or CUE files and
// CONTAGION_* environment variables.
//
// Precedence, lowest first: Default, file, environment, command-line flags
// (applied by the caller).
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/contagion/internal/epidemic"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CONTAGION_"

// Config holds model parameters and run settings.
type Config struct {
	InfectRate    float64 `yaml:"infect_rate" json:"infect_rate" env:"INFECT_RATE"`
	TIncubation   float64 `yaml:"t_incubation" json:"t_incubation" env:"T_INCUBATION"`
	TRecovery     float64 `yaml:"t_recovery" json:"t_recovery" env:"T_RECOVERY"`
	TLossImmunity float64 `yaml:"t_loss_immunity" json:"t_loss_immunity" env:"T_LOSS_IMMUNITY"`

	// Seed seeds the first run; ensemble run k uses Seed+k.
	Seed uint64 `yaml:"seed" json:"seed" env:"SEED"`

	WindowMode string `yaml:"window_mode" json:"window_mode" env:"WINDOW_MODE"`

	// Runs is the number of seeds to simulate.
	Runs int `yaml:"runs" json:"runs" env:"RUNS"`

	// Workers bounds concurrent runs. 0 means one per CPU.
	Workers int `yaml:"workers" json:"workers" env:"WORKERS"`
}

// Default returns the built-in settings. Durations are in seconds, matching
// the conference datasets: one day of incubation, five days infectious and
// thirty days of immunity.
func Default() Config {
	return Config{
		InfectRate:    3e-4,
		TIncubation:   86400,
		TRecovery:     5 * 86400,
		TLossImmunity: 30 * 86400,
		WindowMode:    string(epidemic.WindowCorrected),
		Runs:          1,
	}
}

// Load reads path over Default. The format is chosen by extension: .yaml
// and .yml are decoded strictly (unknown keys are errors), .cue is unified
// with the embedded schema first.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	case ".cue":
		err = decodeCUE(path, data, &cfg)
	default:
		err = fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty document leaves the defaults in place.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func decodeCUE(path string, data []byte, cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return err
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return unified.Decode(cfg)
}

// ApplyEnv overlays CONTAGION_* variables from the process environment.
// Unset variables leave the current value untouched.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, env.Options{Prefix: EnvPrefix})
}

// ApplyEnvFrom is like ApplyEnv but reads from environ instead of the
// process environment.
func ApplyEnvFrom(cfg *Config, environ map[string]string) error {
	return applyEnv(cfg, env.Options{Prefix: EnvPrefix, Environment: environ})
}

func applyEnv(cfg *Config, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return cfg.Validate()
}

// Validate checks run settings and model parameters.
func (c Config) Validate() error {
	if c.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", c.Runs)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return c.Params().Validate()
}

// Params converts the model section to epidemic.Params.
func (c Config) Params() epidemic.Params {
	return epidemic.Params{
		InfectRate:    c.InfectRate,
		TIncubation:   c.TIncubation,
		TRecovery:     c.TRecovery,
		TLossImmunity: c.TLossImmunity,
		WindowMode:    epidemic.WindowMode(c.WindowMode),
	}
}

// Seeds returns the seeds of an ensemble: Seed, Seed+1, ..., Seed+Runs-1.
func (c Config) Seeds() []uint64 {
	seeds := make([]uint64, c.Runs)
	for i := range seeds {
		seeds[i] = c.Seed + uint64(i)
	}
	return seeds
}
