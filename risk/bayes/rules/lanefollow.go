package rules

import (
	"fmt"

	"github.com/inference-sim/collision-risk/risk/bayes"
)

// Output node of the lane-following model.
const NodePredictedBraking = "Predicted_FV_Braking_Behavior"

// States of NodePredictedBraking.
const (
	StateEmergency     = "Emergency"
	StateTargetBrake   = "TargetBrake"
	StateFollowVehicle = "FollowVehicle"
	StateNoBrake       = "NoBrake"
)

// criticalTTC separates critical from medium time-to-collision, in seconds.
const criticalTTC = 1.5

func frontFeatures(f any) (FrontFeatures, error) {
	switch v := f.(type) {
	case FrontFeatures:
		return v, nil
	case *FrontFeatures:
		return *v, nil
	}
	return FrontFeatures{}, fmt.Errorf("expected FrontFeatures, got %T", f)
}

// frontRule adapts a typed rule to the untyped registry signature.
func frontRule(rule func(FrontFeatures) bayes.NodeEvidence) bayes.EvidenceRule {
	return func(f any) (bayes.NodeEvidence, error) {
		ff, err := frontFeatures(f)
		if err != nil {
			return bayes.NodeEvidence{}, err
		}
		return rule(ff), nil
	}
}

func laneFollowRules() bayes.RuleSet {
	return bayes.RuleSet{
		Model: ModelLaneFollow,
		Rules: map[string]bayes.EvidenceRule{
			"TTC":                         unobserved("Critical", "Medium", "High"),
			"TTC_Measurement_Uncertainty": unobserved("High", "Low"),
			"Measured_TTC":                frontRule(measuredTTC),
			"HeavyRain": frontRule(func(f FrontFeatures) bayes.NodeEvidence {
				return yesNo(f.HeavyRain)
			}),
			"FVViewRange":             unobserved("Restricted", "Clear"),
			"FV_Situation_Perception": unobserved("Incorrect", "Correct"),
			"FV_Situation_Assessment": unobserved("Incorrect", "Correct"),
			"FV_Maneuver_Decision":    unobserved("Correct", "Incorrect"),
			"FV_Front_Existence": frontRule(func(f FrontFeatures) bayes.NodeEvidence {
				return yesNo(f.LeadExists)
			}),
			"FV_Braking_Behavior": unobserved("Emergency", "TargetBrake", "FollowVehicle", "NoBrake"),
			"FVType": frontRule(func(f FrontFeatures) bayes.NodeEvidence {
				if f.LeadingVehicleIsLarger {
					return observed([]string{"Smaller_than_ego", "Taller_than_ego"}, "Taller_than_ego")
				}
				return observed([]string{"Smaller_than_ego", "Taller_than_ego"}, "Smaller_than_ego")
			}),
			"Ego_FV_Perception":  unobserved("Obstructed", "Unobstructed"),
			NodePredictedBraking: output(StateEmergency, StateTargetBrake, StateFollowVehicle, StateNoBrake),
		},
	}
}

// measuredTTC is both queried and observed: the time to collision between
// the front vehicle and its lead.
func measuredTTC(f FrontFeatures) bayes.NodeEvidence {
	states := []string{"Critical", "Medium", "High"}
	state := "High"
	if f.LeadSpeed != nil && f.Distance != nil {
		if rel := f.Speed - *f.LeadSpeed; rel > 0 {
			state = "Critical"
			if *f.Distance/rel >= criticalTTC {
				state = "Medium"
			}
		}
	}
	ev := observed(states, state)
	ev.Output = true
	return ev
}
