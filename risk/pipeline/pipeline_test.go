package pipeline

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/inference-sim/collision-risk/risk"
	"github.com/inference-sim/collision-risk/risk/bayes"
	"github.com/inference-sim/collision-risk/risk/scene"
	"github.com/inference-sim/collision-risk/risk/situation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func road() scene.StraightRoad {
	return scene.StraightRoad{LaneWidth: 3.5, Lanes: 2, Length: 300}
}

func testConfig() risk.Config {
	cfg := risk.DefaultConfig()
	cfg.Pipeline.SkipCycleCount = 1
	cfg.Pipeline.StopLine = scene.Location{X: 250, Y: 1.75}
	return cfg
}

func newPipeline(t *testing.T, cfg risk.Config) *Pipeline {
	t.Helper()
	class, err := situation.FromRoad("road", road())
	require.NoError(t, err)
	p, err := New(cfg, []situation.Class{class}, road(), nil)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func vehicle(id int, x, y, speed float64) scene.Vehicle {
	return scene.Vehicle{
		ID:       id,
		Length:   4.5,
		Width:    1.9,
		Pose:     scene.Pose{Location: scene.Location{X: x, Y: y}},
		Velocity: scene.Vector{X: speed},
	}
}

func stoppedFront() scene.Snapshot {
	return scene.Snapshot{
		Ego:    vehicle(1, 10, 1.75, 10),
		Others: []scene.Vehicle{vehicle(2, 30, 1.75, 0)},
	}
}

func TestTick_StoppedFrontVehicle_RiskRises(t *testing.T) {
	// GIVEN an ego at 10 m/s closing on a stopped vehicle 15.5 m ahead
	p := newPipeline(t, testConfig())

	// WHEN the tick is assessed
	res, err := p.Tick(context.Background(), stoppedFront())
	require.NoError(t, err)

	// THEN the stopped vehicle is the front vehicle with one inference result
	assert.False(t, res.Skipped)
	assert.Equal(t, "road", res.EgoClass)
	assert.Equal(t, situation.RoleFront, res.Roles[2])
	require.Len(t, res.Inference, 1)
	require.NoError(t, res.Inference[0].Err)

	// AND its braking risk starts near zero and peaks within the horizon
	vr, ok := res.Risks[2]
	require.True(t, ok)
	assert.Equal(t, risk.BehaviorBraking, vr.Behavior)
	require.Len(t, vr.Total, 21)
	assert.Less(t, vr.Total[0], 0.01)
	peak, at := vr.Total.Peak()
	assert.Greater(t, peak, 0.5)
	assert.Greater(t, at, 0)

	// AND every sampled distribution is recorded
	assert.Contains(t, res.Trajectories, EgoTrajectory)
	assert.Contains(t, res.Trajectories, risk.SubsystemHypothesis(2, HypothesisIDM))
	for name, d := range res.Trajectories {
		assert.Equal(t, 21, d.Len(), name)
	}
}

func TestTick_HypothesisWeightsSumToOne(t *testing.T) {
	p := newPipeline(t, testConfig())

	res, err := p.Tick(context.Background(), stoppedFront())
	require.NoError(t, err)

	sum := 0.0
	for _, h := range res.Risks[2].Hypotheses {
		assert.Greater(t, h.Prob, 0.0, h.Name)
		sum += h.Prob
	}
	assert.InDelta(t, 1, sum, 1e-9)
}

func TestTick_NoSensedVehicles_EmptyRisks(t *testing.T) {
	// GIVEN the only other vehicle far behind the ego
	p := newPipeline(t, testConfig())
	snap := scene.Snapshot{
		Ego:    vehicle(1, 100, 1.75, 10),
		Others: []scene.Vehicle{vehicle(2, 20, 5.25, 10)},
	}

	// WHEN the tick is assessed
	res, err := p.Tick(context.Background(), snap)
	require.NoError(t, err)

	// THEN no inference or sampling happens and the risk map is empty
	require.NotNil(t, res.Risks)
	assert.Empty(t, res.Risks)
	assert.Empty(t, res.Inference)
	assert.Empty(t, res.Trajectories)
}

func TestTick_SkipCycles(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.SkipCycleCount = 3
	p := newPipeline(t, cfg)

	var skipped []bool
	for i := 0; i < 6; i++ {
		snap := stoppedFront()
		snap.Tick = i
		res, err := p.Tick(context.Background(), snap)
		require.NoError(t, err)
		assert.Equal(t, i, res.Tick)
		skipped = append(skipped, res.Skipped)
	}
	assert.Equal(t, []bool{false, true, true, false, true, true}, skipped)
}

func TestTick_SameSeed_IdenticalResults(t *testing.T) {
	a := newPipeline(t, testConfig())
	b := newPipeline(t, testConfig())

	ra, err := a.Tick(context.Background(), stoppedFront())
	require.NoError(t, err)
	rb, err := b.Tick(context.Background(), stoppedFront())
	require.NoError(t, err)

	if diff := cmp.Diff(ra, rb); diff != "" {
		t.Errorf("results differ (-a +b):\n%s", diff)
	}
}

func TestTick_SideVehicle_CutInRisk(t *testing.T) {
	// GIVEN a vehicle abreast in the left lane
	p := newPipeline(t, testConfig())
	sv := vehicle(3, 22, 5.25, 10)
	sv.Lights = scene.LightRightBlinker
	snap := scene.Snapshot{Ego: vehicle(1, 20, 1.75, 10), Others: []scene.Vehicle{sv}}

	// WHEN the tick is assessed
	res, err := p.Tick(context.Background(), snap)
	require.NoError(t, err)

	// THEN it is assessed as cutting in from the left
	assert.Equal(t, situation.RoleSideLeft, res.Roles[3])
	vr, ok := res.Risks[3]
	require.True(t, ok)
	assert.Equal(t, risk.BehaviorLaneChangeToRight, vr.Behavior)
	require.Len(t, vr.Hypotheses, 2)
	assert.Equal(t, HypothesisNoCutIn, vr.Hypotheses[0].Name)
	assert.Equal(t, HypothesisCutIn, vr.Hypotheses[1].Name)
	require.Len(t, vr.Total, 21)
	for i, v := range vr.Total {
		assert.GreaterOrEqual(t, v, 0.0, "step %d", i)
		assert.LessOrEqual(t, v, 1.0, "step %d", i)
	}
	assert.Contains(t, res.Trajectories, risk.SubsystemHypothesis(3, HypothesisCutIn))
}

func TestTick_CancelledContext(t *testing.T) {
	p := newPipeline(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Tick(ctx, stoppedFront())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RejectsBadSetup(t *testing.T) {
	class, err := situation.FromRoad("road", road())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*risk.Config)
		want   error
	}{
		{"unknown model", func(c *risk.Config) { c.Inference.RoleModels["front"] = "NoSuchModel" }, bayes.ErrUnknownModel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			_, err := New(cfg, []situation.Class{class}, road(), nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	cfg := testConfig()
	cfg.Inference.Workers = 0
	_, err = New(cfg, []situation.Class{class}, road(), nil)
	assert.ErrorContains(t, err, "inference.workers")

	_, err = New(testConfig(), []situation.Class{class, class}, road(), nil)
	assert.Error(t, err)
}

func TestTickResult_Record(t *testing.T) {
	// GIVEN an assessed stopped-front tick
	p := newPipeline(t, testConfig())
	res, err := p.Tick(context.Background(), stoppedFront())
	require.NoError(t, err)

	// WHEN it is flattened for tracing
	rec := res.Record()

	// THEN roles, inference outputs and risks carry over by name
	assert.Equal(t, "front", rec.Roles[2])
	require.Len(t, rec.Risks, 1)
	assert.Equal(t, 2, rec.Risks[0].VehicleID)
	assert.Equal(t, "braking", rec.Risks[0].Behavior)
	assert.Equal(t, []float64(res.Risks[2].Total), rec.Risks[0].Total)
	require.NotEmpty(t, rec.Inference)
	for _, inf := range rec.Inference {
		assert.Empty(t, inf.Error)
		assert.NotEmpty(t, inf.Posterior, inf.Node)
	}

	// AND trajectories are sorted by name with the ego first
	require.Len(t, rec.Trajectories, len(res.Trajectories))
	assert.Equal(t, EgoTrajectory, rec.Trajectories[0].Name)
}
