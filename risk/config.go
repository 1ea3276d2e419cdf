package risk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/inference-sim/collision-risk/risk/hazard"
	"github.com/inference-sim/collision-risk/risk/scene"
	"github.com/inference-sim/collision-risk/risk/situation"
	"github.com/inference-sim/collision-risk/risk/trajectory"
	"gopkg.in/yaml.v3"
)

// InferenceConfig groups maneuver inference parameters.
type InferenceConfig struct {
	Workers         int               `yaml:"workers"`          // inference pool size (must be >= 1)
	InteractionHops int               `yaml:"interaction_hops"` // front vehicles kept, nearest first (0 = all)
	RoleModels      map[string]string `yaml:"role_models"`      // role name -> model name
}

// PipelineConfig groups per-tick orchestration parameters.
type PipelineConfig struct {
	SkipCycleCount       int            `yaml:"skip_cycle_count"` // run every Nth tick (1 = every tick)
	StopLine             scene.Location `yaml:"stop_line"`        // braking target of the target-brake hypothesis
	LeadLateralTolerance float64        `yaml:"lead_lateral_tolerance"`
}

// Config is the full run configuration. Its YAML form is defaults.yaml.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Seed       int64                   `yaml:"seed"`
	Prediction trajectory.Params       `yaml:"prediction"`
	Eggert     hazard.Eggert           `yaml:"eggert"`
	Trajectory trajectory.Config       `yaml:"trajectory"`
	Sensing    situation.SensingParams `yaml:"sensing"`
	Inference  InferenceConfig         `yaml:"inference"`
	Pipeline   PipelineConfig          `yaml:"pipeline"`
}

// DefaultConfig returns the calibrated Town03 configuration.
func DefaultConfig() Config {
	return Config{
		Seed:       42,
		Prediction: trajectory.DefaultParams(),
		Eggert:     hazard.DefaultEggert(),
		Trajectory: trajectory.DefaultConfig(),
		Sensing:    situation.DefaultSensingParams(),
		Inference: InferenceConfig{
			Workers:         2,
			InteractionHops: 1,
			RoleModels:      DefaultRoleModels(),
		},
		Pipeline: PipelineConfig{
			SkipCycleCount:       4,
			StopLine:             scene.Location{X: -74.8, Y: 127},
			LeadLateralTolerance: 1.5,
		},
	}
}

// Validate checks that all fields in the configuration are usable.
func (c Config) Validate() error {
	if err := c.Prediction.Validate(); err != nil {
		return err
	}
	if err := c.Eggert.Validate(); err != nil {
		return err
	}
	if err := c.Trajectory.Validate(); err != nil {
		return err
	}
	if err := c.Sensing.Validate(); err != nil {
		return err
	}
	if c.Inference.Workers < 1 {
		return fmt.Errorf("inference.workers must be >= 1, got %d", c.Inference.Workers)
	}
	if c.Inference.InteractionHops < 0 {
		return fmt.Errorf("inference.interaction_hops must be >= 0, got %d", c.Inference.InteractionHops)
	}
	if _, err := RoleModels(c.Inference.RoleModels); err != nil {
		return err
	}
	if c.Pipeline.SkipCycleCount < 1 {
		return fmt.Errorf("pipeline.skip_cycle_count must be >= 1, got %d", c.Pipeline.SkipCycleCount)
	}
	if tol := c.Pipeline.LeadLateralTolerance; tol <= 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
		return fmt.Errorf("pipeline.lead_lateral_tolerance must be a finite positive number, got %f", tol)
	}
	return nil
}

// LoadConfig reads a YAML configuration file. Sections missing from the file
// keep their DefaultConfig values.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a configuration from YAML bytes on top of
// DefaultConfig, with strict field checking.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
