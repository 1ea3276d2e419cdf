package pipeline

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/inference-sim/collision-risk/risk"
	"github.com/inference-sim/collision-risk/risk/bayes"
	"github.com/inference-sim/collision-risk/risk/bayes/rules"
	"github.com/inference-sim/collision-risk/risk/hazard"
	"github.com/inference-sim/collision-risk/risk/scene"
	"github.com/inference-sim/collision-risk/risk/situation"
	"github.com/inference-sim/collision-risk/risk/trajectory"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// Hypothesis names, also used in trajectory keys.
const (
	HypothesisEmergency   = "emergency"
	HypothesisTargetBrake = "target_brake"
	HypothesisIDM         = "idm"
	HypothesisCutIn       = "cut_in"
	HypothesisNoCutIn     = "no_cut_in"
)

// assessment is the trajectory and risk stage of one tick. All positions
// are in the ego frame.
type assessment struct {
	p     *Pipeline
	snap  scene.Snapshot
	frame scene.EgoFrame
	out   *TickResult

	egoFront trajectory.State
	ego      trajectory.Distribution
}

// stateOf transforms a vehicle's center kinematics into the ego frame.
func (a *assessment) stateOf(v scene.Vehicle) trajectory.State {
	loc := a.frame.Point(v.Location())
	vel := a.frame.Vector(v.Velocity)
	acc := a.frame.Vector(v.Acceleration)
	return trajectory.State{PX: loc.X, PY: loc.Y, VX: vel.X, VY: vel.Y, AX: acc.X, AY: acc.Y}
}

// sampleEgo predicts the ego front with the constant acceleration model.
func (a *assessment) sampleEgo() {
	a.egoFront = a.stateOf(a.snap.Ego)
	a.egoFront.PX += a.snap.Ego.Length / 2
	a.ego = a.p.sampler.ConstantAccel(a.p.rng.ForSubsystem(risk.SubsystemEgo), a.egoFront)
	a.out.Trajectories[EgoTrajectory] = a.ego
}

// sample runs gen for one hypothesis of vehicle id and records the
// distribution.
func (a *assessment) sample(id int, hypothesis string, gen func(src rand.Source) trajectory.Distribution) trajectory.Distribution {
	name := risk.SubsystemHypothesis(id, hypothesis)
	d := gen(a.p.rng.ForSubsystem(name))
	a.out.Trajectories[name] = d
	return d
}

func (a *assessment) longitudinal(d trajectory.Distribution) (hazard.Curve, error) {
	return a.p.cfg.Eggert.Risk(
		hazard.Position{Mean: a.ego.XMean, Std: a.ego.XStd},
		hazard.Position{Mean: d.XMean, Std: d.XStd},
		a.p.cfg.Prediction.Timestep,
	)
}

// assess turns one output posterior into a vehicle risk. ok is false for
// outputs without a behavior.
func (a *assessment) assess(v scene.Vehicle, r bayes.Result, out bayes.NodePosterior) (VehicleRisk, bool, error) {
	behavior := risk.BehaviorFor(out.Node)
	var hs []hazard.Hypothesis
	var err error
	switch {
	case behavior == risk.BehaviorBraking:
		hs, err = a.braking(v, r.Role, out)
	case behavior.IsLaneChange():
		hs, err = a.laneChange(v, out)
	default:
		return VehicleRisk{}, false, nil
	}
	if err != nil {
		return VehicleRisk{}, false, err
	}
	total, err := hazard.Weighted(hs)
	if err != nil {
		return VehicleRisk{}, false, err
	}
	return VehicleRisk{
		VehicleID:  v.ID,
		Role:       r.Role,
		Model:      r.Model,
		Behavior:   behavior,
		Total:      total,
		Hypotheses: hs,
	}, true, nil
}

// braking weighs the emergency, target-brake and car-following hypotheses
// of the vehicle ahead. Hypotheses with zero probability are not sampled.
func (a *assessment) braking(v scene.Vehicle, role situation.RoleTag, out bayes.NodePosterior) ([]hazard.Hypothesis, error) {
	fv := a.stateOf(v)
	if role == situation.RoleFrontInLaneChange {
		fv.PY, fv.VY, fv.AY = 0, 0, 0
	}
	half := v.Length / 2
	rear := fv
	rear.PX -= half

	s := a.p.sampler
	var hs []hazard.Hypothesis
	add := func(name string, prob float64, d trajectory.Distribution) error {
		curve, err := a.longitudinal(d)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		hs = append(hs, hazard.Hypothesis{Name: name, Prob: prob, Curve: curve})
		return nil
	}

	if prob := out.Prob(rules.StateEmergency); prob > 0 {
		d := a.sample(v.ID, HypothesisEmergency, func(src rand.Source) trajectory.Distribution {
			return s.EmergencyBrake(src, rear)
		})
		if err := add(HypothesisEmergency, prob, d); err != nil {
			return nil, err
		}
	}
	if prob := out.Prob(rules.StateTargetBrake); prob > 0 {
		stop := a.frame.Point(a.p.cfg.Pipeline.StopLine)
		target := stop.X - (fv.PX + half)
		d := a.sample(v.ID, HypothesisTargetBrake, func(src rand.Source) trajectory.Distribution {
			return s.TargetBrake(src, rear, target)
		})
		if err := add(HypothesisTargetBrake, prob, d); err != nil {
			return nil, err
		}
	}
	if prob := out.Prob(rules.StateFollowVehicle) + out.Prob(rules.StateNoBrake); prob > 0 {
		leader := a.leaderOf(v, fv)
		d := a.sample(v.ID, HypothesisIDM, func(src rand.Source) trajectory.Distribution {
			return s.IDM(src, rear, v.Length, leader)
		})
		if err := add(HypothesisIDM, prob, d); err != nil {
			return nil, err
		}
	}
	return hs, nil
}

// leaderOf returns the rear of the vehicle driving ahead of v, or a
// synthetic leader one IDM time gap ahead at v's speed when there is none.
func (a *assessment) leaderOf(v scene.Vehicle, fv trajectory.State) trajectory.State {
	if lead, ok := a.snap.Ahead(v, a.p.cfg.Pipeline.LeadLateralTolerance); ok {
		ls := a.stateOf(lead)
		ls.PX -= lead.Length / 2
		return ls
	}
	logrus.Debugf("tick %d: no vehicle ahead of %d, assuming a synthetic leader", a.snap.Tick, v.ID)
	front := fv.PX + v.Length/2
	return trajectory.State{
		PX: front + fv.VX*a.p.cfg.Trajectory.IDM.TimeGap,
		PY: fv.PY,
		VX: fv.VX,
		VY: fv.VY,
	}
}

// laneChange weighs a cut-in into the ego lane against staying in lane. The
// cut-in curve is the product of the longitudinal overlap risk, with the
// vehicle's rear against the ego front, and the lateral risk of the gap
// between the two vehicles' sides.
func (a *assessment) laneChange(v scene.Vehicle, out bayes.NodePosterior) ([]hazard.Hypothesis, error) {
	steps := a.p.cfg.Prediction.Steps()
	cutIn := out.Prob(rules.StateCutIn)
	hs := []hazard.Hypothesis{{Name: HypothesisNoCutIn, Prob: 1 - cutIn, Curve: make(hazard.Curve, steps)}}
	if cutIn <= 0 {
		return hs, nil
	}

	lc := a.p.cfg.Trajectory.LaneChange
	sv := a.stateOf(v)
	target := orb.Point{a.egoFront.PX + lc.CutInDistance, 0}
	d := a.sample(v.ID, HypothesisCutIn, func(src rand.Source) trajectory.Distribution {
		return a.p.sampler.LaneChange(src, sv, target)
	})

	rear := trajectory.Distribution{XMean: make([]float64, steps), XStd: d.XStd}
	gap := hazard.Position{Mean: make([]float64, steps), Std: d.YStd}
	egoLat := hazard.Position{Mean: make([]float64, steps), Std: make([]float64, steps)}
	halfWidths := (v.Width + a.snap.Ego.Width) / 2
	for k := 0; k < steps; k++ {
		rear.XMean[k] = d.XMean[k] - v.Length/2
		gap.Mean[k] = math.Abs(d.YMean[k]) - halfWidths
		egoLat.Std[k] = lc.EgoLateralStd
	}

	long, err := a.longitudinal(rear)
	if err != nil {
		return nil, fmt.Errorf("%s longitudinal: %w", HypothesisCutIn, err)
	}
	lat, err := a.p.cfg.Eggert.Risk(egoLat, gap, a.p.cfg.Prediction.Timestep)
	if err != nil {
		return nil, fmt.Errorf("%s lateral: %w", HypothesisCutIn, err)
	}
	curve, err := hazard.Product(long, lat)
	if err != nil {
		return nil, err
	}
	return append(hs, hazard.Hypothesis{Name: HypothesisCutIn, Prob: cutIn, Curve: curve}), nil
}
