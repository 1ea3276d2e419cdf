package risk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inference-sim/collision-risk/risk/bayes/rules"
	"github.com/inference-sim/collision-risk/risk/situation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 21, cfg.Prediction.Steps())
	assert.Equal(t, 4, cfg.Pipeline.SkipCycleCount)
	assert.Equal(t, 2, cfg.Inference.Workers)
}

func TestConfig_Validate_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no workers", func(c *Config) { c.Inference.Workers = 0 }, "inference.workers"},
		{"negative hops", func(c *Config) { c.Inference.InteractionHops = -1 }, "interaction_hops"},
		{"zero skip cycles", func(c *Config) { c.Pipeline.SkipCycleCount = 0 }, "skip_cycle_count"},
		{"bad lead tolerance", func(c *Config) { c.Pipeline.LeadLateralTolerance = 0 }, "lead_lateral_tolerance"},
		{"bad horizon", func(c *Config) { c.Prediction.Horizon = -1 }, "prediction.horizon"},
		{"bad eggert", func(c *Config) { c.Eggert.Beta = 0 }, "eggert.beta"},
		{"bad trajectory", func(c *Config) { c.Trajectory.IDM.Delta = 0 }, "idm.delta"},
		{"bad sensing", func(c *Config) { c.Sensing.SideLength = 0 }, "sensing.side_length"},
		{"unknown role", func(c *Config) { c.Inference.RoleModels["rear"] = "X" }, "unknown role"},
		{"ego role", func(c *Config) { c.Inference.RoleModels["ego"] = "X" }, "cannot have a model"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseConfig_OverridesOnTopOfDefaults(t *testing.T) {
	// GIVEN a file setting only two fields
	data := []byte(`
seed: 7
pipeline:
  skip_cycle_count: 1
  stop_line: {x: 100, y: 1.75}
  lead_lateral_tolerance: 1.5
`)

	// WHEN it is parsed
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	// THEN the fields are overridden and the rest keeps its defaults
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 1, cfg.Pipeline.SkipCycleCount)
	assert.Equal(t, 100.0, cfg.Pipeline.StopLine.X)
	assert.Equal(t, DefaultConfig().Trajectory, cfg.Trajectory)
	assert.NoError(t, cfg.Validate())
}

func TestParseConfig_EmptyYieldsDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfig_UnknownField_Rejected(t *testing.T) {
	_, err := ParseConfig([]byte("pipeline:\n  skip_cycles: 2\n"))
	assert.Error(t, err)
}

func TestLoadConfig_RepositoryDefaultsMatch(t *testing.T) {
	// defaults.yaml at the repository root mirrors DefaultConfig
	path := filepath.Join("..", "defaults.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("defaults.yaml not found: %v", err)
	}
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestBehaviorFor(t *testing.T) {
	tests := []struct {
		node string
		want Behavior
	}{
		{rules.NodePredictedBraking, BehaviorBraking},
		{rules.NodePredictedLeftCutIn, BehaviorLaneChangeToRight},
		{rules.NodePredictedRightCutIn, BehaviorLaneChangeToLeft},
		{"TTC", BehaviorNone},
	}
	for _, tc := range tests {
		t.Run(tc.node, func(t *testing.T) {
			assert.Equal(t, tc.want, BehaviorFor(tc.node))
		})
	}
	assert.True(t, BehaviorLaneChangeToLeft.IsLaneChange())
	assert.False(t, BehaviorBraking.IsLaneChange())
	assert.Equal(t, "lane_change_to_right", BehaviorLaneChangeToRight.String())
}

func TestRoleModels_DefaultTable(t *testing.T) {
	table, err := RoleModels(DefaultRoleModels())
	require.NoError(t, err)
	assert.Equal(t, map[situation.RoleTag]string{
		situation.RoleFront:             rules.ModelLaneFollow,
		situation.RoleFrontInLaneChange: rules.ModelLaneFollow,
		situation.RoleSideLeft:          rules.ModelCutInFromLeft,
		situation.RoleSideRight:         rules.ModelCutInFromRight,
	}, table)

	_, err = RoleModels(map[string]string{"front": ""})
	assert.ErrorContains(t, err, "empty model")
}
