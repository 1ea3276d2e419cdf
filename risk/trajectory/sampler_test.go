package trajectory

import (
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noiseless removes every sampled term so rollouts are exact.
func noiseless() Config {
	cfg := DefaultConfig()
	cfg.Emergency.AccelStd, cfg.Emergency.PosStd = 0, 0
	cfg.ConstantAccel.AccelStd, cfg.ConstantAccel.PosStd = 0, 0
	cfg.TargetBrake.SafeDistanceMargin, cfg.TargetBrake.PosStd = 0, 0
	cfg.IDM.TimeGapStd, cfg.IDM.PosStd = 0, 0
	cfg.LaneChange.EndpointStd = 0
	return cfg
}

func newSampler(t *testing.T, cfg Config) *Sampler {
	t.Helper()
	s, err := NewSampler(DefaultParams(), cfg)
	require.NoError(t, err)
	return s
}

func src() rand.Source { return rand.NewPCG(42, 7) }

func TestParams_Steps(t *testing.T) {
	assert.Equal(t, 21, DefaultParams().Steps())
	assert.Equal(t, 11, Params{Horizon: 1, Timestep: 0.1, NumTrajectories: 1}.Steps())
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		want string
	}{
		{"zero horizon", Params{Horizon: 0, Timestep: 0.2, NumTrajectories: 1}, "horizon"},
		{"timestep beyond horizon", Params{Horizon: 1, Timestep: 2, NumTrajectories: 1}, "timestep"},
		{"no rollouts", Params{Horizon: 1, Timestep: 0.2}, "num_trajectories"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
	assert.NoError(t, DefaultParams().Validate())
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.IDM.MaxDeceleration = 3
	assert.ErrorContains(t, cfg.Validate(), "idm.max_deceleration")

	cfg = DefaultConfig()
	cfg.Emergency.PosStd = -1
	assert.ErrorContains(t, cfg.Validate(), "emergency.pos_std")

	_, err := NewSampler(DefaultParams(), cfg)
	assert.Error(t, err)
}

func TestGenerators_ReturnFullHorizon(t *testing.T) {
	s := newSampler(t, DefaultConfig())
	init := State{PX: 10, PY: 1, VX: 12}

	dists := map[string]Distribution{
		"emergency":      s.EmergencyBrake(src(), init),
		"constant accel": s.ConstantAccel(src(), init),
		"target brake":   s.TargetBrake(src(), init, 40),
		"idm":            s.IDM(src(), init, 4.5, State{PX: 30, VX: 5}),
		"lane change":    s.LaneChange(src(), init, orb.Point{30, 0}),
	}
	for name, d := range dists {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, 21, d.Len())
			for _, curve := range [][]float64{d.XMean, d.XStd, d.YMean, d.YStd} {
				require.Len(t, curve, 21)
			}
			for k := range d.XStd {
				assert.GreaterOrEqual(t, d.XStd[k], 0.0)
				assert.GreaterOrEqual(t, d.YStd[k], 0.0)
			}
		})
	}
}

func TestGenerators_SameSeedSameDistribution(t *testing.T) {
	s := newSampler(t, DefaultConfig())
	init := State{PX: 0, VX: 10}

	assert.Equal(t, s.EmergencyBrake(src(), init), s.EmergencyBrake(src(), init))
	assert.Equal(t, s.LaneChange(src(), init, orb.Point{20, 3}), s.LaneChange(src(), init, orb.Point{20, 3}))
	assert.NotEqual(t, s.EmergencyBrake(src(), init), s.EmergencyBrake(rand.NewPCG(1, 1), init))
}

func TestEmergencyBrake_StopsAndStays(t *testing.T) {
	// GIVEN a vehicle at 10 m/s braking at exactly -6 m/s^2
	s := newSampler(t, noiseless())

	// WHEN the distribution is sampled
	d := s.EmergencyBrake(src(), State{VX: 10})

	// THEN the first step applies v*dt + a*dt^2
	assert.InDelta(t, 1.76, d.XMean[1], 1e-9)
	// AND the vehicle comes to rest after nine steps and stays there
	assert.InDelta(t, 7.2, d.XMean[9], 1e-9)
	assert.InDelta(t, 7.2, d.XMean[20], 1e-9)
	for k := range d.XStd {
		assert.Zero(t, d.XStd[k])
		assert.Zero(t, d.YMean[k])
	}
}

func TestConstantAccel_ZeroAcceleration_ConstantSpeed(t *testing.T) {
	s := newSampler(t, noiseless())

	d := s.ConstantAccel(src(), State{PX: 2.25, VX: 10})

	assert.InDelta(t, 2.25, d.XMean[0], 1e-9)
	assert.InDelta(t, 42.25, d.XMean[20], 1e-9)
}

func TestConstantAccel_NegativeSpeed_AtRest(t *testing.T) {
	s := newSampler(t, noiseless())

	d := s.ConstantAccel(src(), State{PX: 5, VX: -1, AX: -2})

	assert.InDelta(t, 5, d.XMean[20], 1e-9)
}

func TestTargetBrake_Deceleration(t *testing.T) {
	tests := []struct {
		name   string
		target float64
		want   float64 // position after the first step
	}{
		{"comfortable stop", 20, 2 - 2.5*0.04},
		{"capped at max deceleration", 5, 2 - 8*0.04},
		{"target behind keeps speed", -3, 2},
	}
	s := newSampler(t, noiseless())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := s.TargetBrake(src(), State{VX: 10}, tc.target)
			assert.InDelta(t, tc.want, d.XMean[1], 1e-9)
		})
	}
}

func TestIDM_NoGap_MaxBraking(t *testing.T) {
	// GIVEN a leader whose rear touches the follower's front
	s := newSampler(t, noiseless())

	// WHEN the follower is rolled out
	d := s.IDM(src(), State{VX: 10}, 4, State{PX: 2, VX: 0})

	// THEN it brakes with the maximum deceleration
	assert.InDelta(t, 2-8*0.04, d.XMean[1], 1e-9)
}

func TestIDM_NeverMovesBackwards(t *testing.T) {
	s := newSampler(t, DefaultConfig())

	d := s.IDM(src(), State{VX: 8}, 4.5, State{PX: 12, VX: 0})

	for k := 1; k < d.Len(); k++ {
		assert.GreaterOrEqual(t, d.XMean[k], d.XMean[k-1]-1e-12, "step %d", k)
	}
}

func TestIDM_FreeRoad_KeepsDriving(t *testing.T) {
	s := newSampler(t, noiseless())
	v0 := DefaultConfig().IDM.DesiredSpeed

	d := s.IDM(src(), State{VX: v0}, 4.5, State{PX: 5000, VX: v0})

	assert.InDelta(t, v0*4, d.XMean[20], 0.5)
}

func TestLaneChange_ReachesTargetLane(t *testing.T) {
	// GIVEN a vehicle 3.5 m to the left moving at 10 m/s
	s := newSampler(t, noiseless())

	// WHEN it changes onto y = 0 ending 20 m ahead
	d := s.LaneChange(src(), State{PX: 0, PY: 3.5, VX: 10}, orb.Point{20, 0})

	// THEN it starts at its position and finishes in the target lane
	assert.InDelta(t, 0, d.XMean[0], 1e-9)
	assert.InDelta(t, 3.5, d.YMean[0], 1e-9)
	assert.InDelta(t, 0, d.YMean[20], 1e-9)
	// AND the lateral offset never grows
	for k := 1; k < d.Len(); k++ {
		assert.LessOrEqual(t, d.YMean[k], d.YMean[k-1]+1e-12)
	}
	// AND after the curve it continues at its initial speed
	assert.InDelta(t, 2, d.XMean[20]-d.XMean[19], 1e-9)
	assert.Zero(t, d.XStd[20])
}

func TestLaneChange_AtRest_StaysNearStart(t *testing.T) {
	s := newSampler(t, noiseless())

	d := s.LaneChange(src(), State{PX: 0, PY: 3.5}, orb.Point{20, 0})

	assert.InDelta(t, 0, d.XMean[20], 0.01)
	assert.InDelta(t, 3.5, d.YMean[20], 0.01)
}

func TestLaneChange_EndpointVariation_Spreads(t *testing.T) {
	s := newSampler(t, DefaultConfig())

	d := s.LaneChange(src(), State{PX: 0, PY: 3.5, VX: 10}, orb.Point{20, 0})

	assert.Greater(t, d.XStd[10], 0.0)
}

func TestBezier_StraightLineLength(t *testing.T) {
	b := bezier{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	assert.InDelta(t, 3, b.length(), 1e-12)
	assert.Equal(t, orb.Point{3, 0}, b.at(1))
	assert.Equal(t, orb.Point{0, 0}, b.at(0))
}
