// Package trajectory samples position distributions of vehicles over the
// prediction horizon.
//
// Every generator draws NumTrajectories Monte Carlo rollouts of a kinematic
// State, then reduces them per time step to a mean and a population standard
// deviation. Positions are in the ego frame: x along the ego heading, y to
// its left. A generator always returns Params.Steps() points, the first being
// the (noisy) initial position.
//
// Randomness comes only from the rand.Source handed to each call, so a fixed
// source seed reproduces a distribution exactly.
package trajectory

import (
	"fmt"
	"math"
)

// State is the kinematic state of one vehicle.
type State struct {
	PX, PY float64
	VX, VY float64
	AX, AY float64
}

// Params is the prediction grid.
type Params struct {
	Horizon         float64 `yaml:"horizon"`          // seconds
	Timestep        float64 `yaml:"timestep"`         // seconds between points
	NumTrajectories int     `yaml:"num_trajectories"` // rollouts per distribution
}

// DefaultParams predicts 4 s ahead at 0.2 s resolution with 20 rollouts.
func DefaultParams() Params {
	return Params{Horizon: 4, Timestep: 0.2, NumTrajectories: 20}
}

// Steps is the number of points of every curve, including t = 0.
func (p Params) Steps() int {
	return int(math.Round(p.Horizon/p.Timestep)) + 1
}

// Validate checks the prediction grid.
func (p Params) Validate() error {
	if p.Horizon <= 0 || math.IsNaN(p.Horizon) || math.IsInf(p.Horizon, 0) {
		return fmt.Errorf("prediction.horizon must be a finite positive number, got %f", p.Horizon)
	}
	if p.Timestep <= 0 || math.IsNaN(p.Timestep) || p.Timestep > p.Horizon {
		return fmt.Errorf("prediction.timestep must be in (0, horizon], got %f", p.Timestep)
	}
	if p.NumTrajectories < 1 {
		return fmt.Errorf("prediction.num_trajectories must be >= 1, got %d", p.NumTrajectories)
	}
	return nil
}

// EmergencyParams is the hard-braking model.
type EmergencyParams struct {
	AccelMean float64 `yaml:"accel_mean"`
	AccelStd  float64 `yaml:"accel_std"`
	PosStd    float64 `yaml:"pos_std"`
}

// ConstantAccelParams is the acceleration random walk used for the ego.
type ConstantAccelParams struct {
	AccelMean float64 `yaml:"accel_mean"`
	AccelStd  float64 `yaml:"accel_std"`
	PosStd    float64 `yaml:"pos_std"`
}

// TargetBrakeParams is braking to a stop in front of a target such as a stop
// line.
type TargetBrakeParams struct {
	SafeDistanceMargin float64 `yaml:"safe_distance_margin"`
	PosStd             float64 `yaml:"pos_std"`
	MaxDeceleration    float64 `yaml:"max_deceleration"` // negative
}

// IDMParams is the Intelligent Driver Model.
type IDMParams struct {
	TimeGap         float64 `yaml:"time_gap"`
	TimeGapStd      float64 `yaml:"time_gap_std"`
	PosStd          float64 `yaml:"pos_std"`
	MinGap          float64 `yaml:"min_gap"`       // s0
	DesiredSpeed    float64 `yaml:"desired_speed"` // v0, m/s
	Delta           float64 `yaml:"delta"`
	MaxAccel        float64 `yaml:"max_accel"`
	ComfortBraking  float64 `yaml:"comfort_braking"`
	MaxDeceleration float64 `yaml:"max_deceleration"` // negative
}

// LaneChangeParams is the Bézier lane-change model and the ego's lateral
// uncertainty it is compared against.
type LaneChangeParams struct {
	EndpointStd   float64 `yaml:"endpoint_std"`
	CutInDistance float64 `yaml:"cut_in_distance"` // meters ahead of the ego front
	EgoLateralStd float64 `yaml:"ego_lateral_std"`
}

// Config groups the parameters of all generators.
type Config struct {
	Emergency     EmergencyParams     `yaml:"emergency"`
	ConstantAccel ConstantAccelParams `yaml:"constant_accel"`
	TargetBrake   TargetBrakeParams   `yaml:"target_brake"`
	IDM           IDMParams           `yaml:"idm"`
	LaneChange    LaneChangeParams    `yaml:"lane_change"`
}

// DefaultConfig returns the calibrated generator parameters.
func DefaultConfig() Config {
	return Config{
		Emergency:     EmergencyParams{AccelMean: -6, AccelStd: 0.7, PosStd: 0.2},
		ConstantAccel: ConstantAccelParams{AccelMean: 0, AccelStd: 0.01, PosStd: 0.2},
		TargetBrake:   TargetBrakeParams{SafeDistanceMargin: 1.5, PosStd: 0.2, MaxDeceleration: -8},
		IDM: IDMParams{
			TimeGap:         1,
			TimeGapStd:      0.05,
			PosStd:          0.2,
			MinGap:          2,
			DesiredSpeed:    50 / 3.6,
			Delta:           4,
			MaxAccel:        0.75,
			ComfortBraking:  1.5,
			MaxDeceleration: -8,
		},
		LaneChange: LaneChangeParams{EndpointStd: 1, CutInDistance: 10, EgoLateralStd: 0.2},
	}
}

// Validate checks every generator's parameters.
func (c Config) Validate() error {
	nonNegative := []struct {
		name  string
		value float64
	}{
		{"emergency.accel_std", c.Emergency.AccelStd},
		{"emergency.pos_std", c.Emergency.PosStd},
		{"constant_accel.accel_std", c.ConstantAccel.AccelStd},
		{"constant_accel.pos_std", c.ConstantAccel.PosStd},
		{"target_brake.safe_distance_margin", c.TargetBrake.SafeDistanceMargin},
		{"target_brake.pos_std", c.TargetBrake.PosStd},
		{"idm.time_gap_std", c.IDM.TimeGapStd},
		{"idm.pos_std", c.IDM.PosStd},
		{"idm.min_gap", c.IDM.MinGap},
		{"lane_change.endpoint_std", c.LaneChange.EndpointStd},
		{"lane_change.cut_in_distance", c.LaneChange.CutInDistance},
		{"lane_change.ego_lateral_std", c.LaneChange.EgoLateralStd},
	}
	for _, f := range nonNegative {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("trajectory.%s must be a finite number >= 0, got %f", f.name, f.value)
		}
	}
	positive := []struct {
		name  string
		value float64
	}{
		{"idm.time_gap", c.IDM.TimeGap},
		{"idm.desired_speed", c.IDM.DesiredSpeed},
		{"idm.delta", c.IDM.Delta},
		{"idm.max_accel", c.IDM.MaxAccel},
		{"idm.comfort_braking", c.IDM.ComfortBraking},
	}
	for _, f := range positive {
		if f.value <= 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("trajectory.%s must be a finite positive number, got %f", f.name, f.value)
		}
	}
	if c.TargetBrake.MaxDeceleration >= 0 {
		return fmt.Errorf("trajectory.target_brake.max_deceleration must be negative, got %f", c.TargetBrake.MaxDeceleration)
	}
	if c.IDM.MaxDeceleration >= 0 {
		return fmt.Errorf("trajectory.idm.max_deceleration must be negative, got %f", c.IDM.MaxDeceleration)
	}
	return nil
}
