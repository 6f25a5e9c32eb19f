package runtime

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sbl8/binlayout/core"
)

// engineConfig is the YAML form of EngineOptions. Absent keys keep the
// base value.
type engineConfig struct {
	Workers         *int  `yaml:"workers"`
	ForceSequential *bool `yaml:"force_sequential"`
	SideEffects     *bool `yaml:"side_effects"`
	EnableStats     *bool `yaml:"enable_stats"`
}

// ParseEngineOptions overlays a YAML document on base. Unknown keys are
// rejected; workers: 0 selects one worker per CPU.
func ParseEngineOptions(data []byte, base EngineOptions) (EngineOptions, error) {
	var cfg engineConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return EngineOptions{}, errors.Wrap(err, "parse engine options")
	}

	opts := base
	if cfg.Workers != nil {
		if *cfg.Workers < 0 {
			return EngineOptions{}, errors.Wrapf(core.ErrInvalidArgument, "workers %d is negative", *cfg.Workers)
		}
		opts.Workers = *cfg.Workers
		if opts.Workers == 0 {
			opts.Workers = DefaultEngineOptions().Workers
		}
	}
	if cfg.ForceSequential != nil {
		opts.ForceSequential = *cfg.ForceSequential
	}
	if cfg.SideEffects != nil {
		opts.SideEffects = *cfg.SideEffects
	}
	if cfg.EnableStats != nil {
		opts.EnableStats = *cfg.EnableStats
	}
	return opts, nil
}

// LoadEngineOptions reads engine options from a YAML file on top of the
// defaults.
func LoadEngineOptions(path string) (EngineOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineOptions{}, errors.Wrapf(err, "read engine options %s", path)
	}
	return ParseEngineOptions(data, DefaultEngineOptions())
}
