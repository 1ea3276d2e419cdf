// Package rules extracts model input features from the scene and maps them
// to evidence for every node of the built-in models. The rule sets register
// themselves with the bayes package on import.
package rules

import (
	"fmt"
	"math"

	"github.com/inference-sim/collision-risk/risk/geom"
	"github.com/inference-sim/collision-risk/risk/scene"
)

// Model names of the built-in networks.
const (
	ModelLaneFollow     = "1LaneFollow_Simple"
	ModelCutInFromLeft  = "CutInFromLeft"
	ModelCutInFromRight = "CutInFromRight"
)

// heavyRainThreshold is the precipitation above which rain counts as heavy.
const heavyRainThreshold = 80.0

// besideTolerance is the longitudinal distance within which a target-lane
// vehicle counts as directly beside the cutting-in vehicle.
const besideTolerance = 3.0

// Input bundles what feature extraction reads for one vehicle.
type Input struct {
	Snapshot scene.Snapshot
	Map      scene.Map
	Vehicle  scene.Vehicle
	// LeadLateralTolerance bounds the lateral offset of a vehicle still
	// counted as driving ahead in the same lane.
	LeadLateralTolerance float64
}

// FrontFeatures feed the lane-following model of the vehicle ahead of the ego.
type FrontFeatures struct {
	HeavyRain              bool
	LeadingVehicleIsLarger bool // the front vehicle's footprint exceeds the ego's
	Speed                  float64
	LeadExists             bool
	LeadSpeed              *float64
	Distance               *float64 // bumper-to-bumper gap to the lead
}

// CutInFeatures feed the cut-in models of a vehicle in the neighbouring lane.
type CutInFeatures struct {
	HeavyRain          bool
	Indicating         bool // blinker set towards the ego lane
	DistanceToLaneEnd  float64
	GapSize            float64 // -1 no gap partners, 0 blocked, otherwise gap length
	HeadingDeviation   float64
	DistanceToBoundary float64 // ego-side front corner to the lane line
	DistanceToCenter   float64
	Speed              float64
	Length             float64
}

// Extract builds the feature value of the named model.
func Extract(model string, in Input) (any, error) {
	switch model {
	case ModelLaneFollow:
		return ExtractFront(in), nil
	case ModelCutInFromLeft:
		return ExtractCutIn(in, scene.SideLeft)
	case ModelCutInFromRight:
		return ExtractCutIn(in, scene.SideRight)
	}
	return nil, fmt.Errorf("no feature extraction for model %s", model)
}

// ExtractFront measures the front vehicle against the vehicle driving ahead
// of it.
func ExtractFront(in Input) FrontFeatures {
	fv, ego := in.Vehicle, in.Snapshot.Ego
	f := FrontFeatures{
		HeavyRain:              in.Snapshot.Environment.Precipitation > heavyRainThreshold,
		LeadingVehicleIsLarger: fv.Length*fv.Width > ego.Length*ego.Width,
		Speed:                  fv.Speed(),
	}
	lead, ok := in.Snapshot.Ahead(fv, in.LeadLateralTolerance)
	if !ok {
		return f
	}
	speed := lead.Speed()
	dist := lead.Location().Distance(fv.Location()) - lead.Length/2 - fv.Length/2
	f.LeadExists = true
	f.LeadSpeed = &speed
	f.Distance = &dist
	return f
}

// ExtractCutIn measures a vehicle on the given side of the ego that may
// merge into the ego lane.
func ExtractCutIn(in Input, from scene.LaneSide) (CutInFeatures, error) {
	sv := in.Vehicle
	wp, err := in.Map.Waypoint(sv.Location())
	if err != nil {
		return CutInFeatures{}, fmt.Errorf("cut-in features for vehicle %d: %w", sv.ID, err)
	}
	toEgo, blinker := scene.SideRight, scene.LightRightBlinker
	if from == scene.SideRight {
		toEgo, blinker = scene.SideLeft, scene.LightLeftBlinker
	}

	f := CutInFeatures{
		HeavyRain:         in.Snapshot.Environment.Precipitation > heavyRainThreshold,
		Indicating:        sv.Lights.Has(blinker),
		DistanceToLaneEnd: wp.DistanceToLaneEnd,
		HeadingDeviation:  geom.HeadingDeviation(wp.Yaw, sv.Pose.Yaw),
		DistanceToCenter:  wp.Location.Distance(sv.Location()),
		Speed:             sv.Speed(),
		Length:            sv.Length,
	}

	lateral := sv.Width / 2
	if toEgo == scene.SideRight {
		lateral = -lateral
	}
	corner := sv.Location().Add(sv.Pose.Forward(), sv.Length/2).Add(sv.Pose.Left(), lateral)
	cwp, err := in.Map.Waypoint(corner)
	if err != nil {
		// the corner has already left the road surface
		f.DistanceToBoundary = 0
	} else {
		f.DistanceToBoundary = cwp.LaneWidth/2 - cwp.Location.Distance(corner)
	}

	target, err := in.Map.LanePoint(sv.Location(), toEgo)
	if err != nil {
		f.GapSize = -1
		return f, nil
	}
	f.GapSize = gapSize(in, sv, target)
	return f, nil
}

// gapSize looks for the vehicles in the target lane that bound the gap the
// cutting-in vehicle would merge into.
func gapSize(in Input, sv scene.Vehicle, target scene.Location) float64 {
	twp, err := in.Map.Waypoint(target)
	if err != nil {
		return -1
	}
	fwd := sv.Pose.Forward()
	var leader, follower *scene.Vehicle
	var leaderS, followerS float64
	for _, v := range in.Snapshot.Vehicles() {
		if v.ID == sv.ID {
			continue
		}
		wp, err := in.Map.Waypoint(v.Location())
		if err != nil || wp.LaneID != twp.LaneID {
			continue
		}
		s := (v.Location().X-sv.Location().X)*fwd.X + (v.Location().Y-sv.Location().Y)*fwd.Y
		switch {
		case math.Abs(s) <= besideTolerance:
			return 0
		case s > 0 && (leader == nil || s < leaderS):
			leader, leaderS = &v, s
		case s < 0 && (follower == nil || s > followerS):
			follower, followerS = &v, s
		}
	}
	if leader == nil || follower == nil {
		return -1
	}
	return leader.Location().Distance(follower.Location())
}
