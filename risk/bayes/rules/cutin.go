package rules

import (
	"fmt"

	"github.com/inference-sim/collision-risk/risk/bayes"
)

// Output nodes of the cut-in models.
const (
	NodePredictedLeftCutIn  = "Predicted_Left_SV_Cut_In_Behavior"
	NodePredictedRightCutIn = "Predicted_Right_SV_Cut_In_Behavior"
)

// StateCutIn is the cut-in state of both output nodes.
const StateCutIn = "CutIn"

// Thresholds of the cut-in evidence.
const (
	comfortableGap      = 4.0 // seconds
	steeringThreshold   = 10.0
	crossingDistance    = 0.5
	midLaneHeading      = 1.5
	midLaneCenterOffset = 0.2
)

func cutInFeatures(f any) (CutInFeatures, error) {
	switch v := f.(type) {
	case CutInFeatures:
		return v, nil
	case *CutInFeatures:
		return *v, nil
	}
	return CutInFeatures{}, fmt.Errorf("expected CutInFeatures, got %T", f)
}

func cutInRule(rule func(CutInFeatures) bayes.NodeEvidence) bayes.EvidenceRule {
	return func(f any) (bayes.NodeEvidence, error) {
		cf, err := cutInFeatures(f)
		if err != nil {
			return bayes.NodeEvidence{}, err
		}
		return rule(cf), nil
	}
}

func cutInRules(model, outputNode string) bayes.RuleSet {
	return bayes.RuleSet{
		Model: model,
		Rules: map[string]bayes.EvidenceRule{
			"Lane_Ends":          cutInRule(laneEnds),
			"Lane_Change_Intent": unobserved("LC_Required", "LC_Not_Required"),
			"Gap_Availability":   cutInRule(gapAvailability),
			"Gap_Acceptance":     unobserved("Acceptable", "Unacceptable"),
			"HeavyRain": cutInRule(func(f CutInFeatures) bayes.NodeEvidence {
				return yesNo(f.HeavyRain)
			}),
			"FVViewRange":             unobserved("Restricted", "Clear"),
			"SV_Situation_Perception": unobserved("Incorrect", "Correct"),
			"SV_Situation_Assessment": unobserved("Incorrect", "Correct"),
			"SV_Maneuver_Decision":    unobserved("Safe_Cutin", "Unsafe_Cutin", "No_Cutin"),
			"SV_Cutin_Behavior":       unobserved("CutIn", "NoCutIn"),
			"Ego_FV_Perception":       unobserved("Obstructed", "Unobstructed"),
			outputNode:                output(StateCutIn, "NoCutIn"),
			"Steering_Angle": cutInRule(func(f CutInFeatures) bayes.NodeEvidence {
				states := []string{"lt_10_deg", "gt_10_deg"}
				if f.HeadingDeviation < steeringThreshold {
					return observed(states, "lt_10_deg")
				}
				return observed(states, "gt_10_deg")
			}),
			"Turn_Indicator": cutInRule(func(f CutInFeatures) bayes.NodeEvidence {
				return yesNo(f.Indicating)
			}),
			"Distance_Center": cutInRule(distanceCenter),
		},
	}
}

func laneEnds(f CutInFeatures) bayes.NodeEvidence {
	states := []string{"small", "medium", "no_lane_end"}
	switch {
	case f.DistanceToLaneEnd >= 10*f.Speed:
		return observed(states, "no_lane_end")
	case f.DistanceToLaneEnd >= 5*f.Speed:
		return observed(states, "medium")
	}
	return observed(states, "small")
}

// gapAvailability compares the gap in the ego lane, in seconds of travel,
// against the vehicle's own length and a comfortable time gap.
func gapAvailability(f CutInFeatures) bayes.NodeEvidence {
	states := []string{"lt_SV_length", "gt_SV_length", "gt_4_secs"}
	switch {
	case f.GapSize == -1:
		return observed(states, "gt_4_secs")
	case f.GapSize == 0:
		return observed(states, "lt_SV_length")
	case f.Speed <= 0:
		return unobservedEvidence(states...)
	}
	gap := f.GapSize / f.Speed
	switch {
	case gap <= f.Length/f.Speed:
		return observed(states, "lt_SV_length")
	case gap <= comfortableGap:
		return observed(states, "gt_SV_length")
	}
	return observed(states, "gt_4_secs")
}

func distanceCenter(f CutInFeatures) bayes.NodeEvidence {
	states := []string{"MidLane", "BetweenLaneAndCrossing", "RightBeforeCrossing"}
	switch {
	case f.DistanceToBoundary <= crossingDistance:
		return observed(states, "RightBeforeCrossing")
	case f.HeadingDeviation < midLaneHeading && f.DistanceToCenter < midLaneCenterOffset:
		return observed(states, "MidLane")
	}
	return observed(states, "BetweenLaneAndCrossing")
}
