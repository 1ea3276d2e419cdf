package risk

import (
	"fmt"
	"sort"

	"github.com/inference-sim/collision-risk/risk/bayes/rules"
	"github.com/inference-sim/collision-risk/risk/situation"
	"github.com/samber/lo"
)

// Behavior is the kind of maneuver a model output predicts.
type Behavior int

const (
	BehaviorNone Behavior = iota
	BehaviorBraking
	BehaviorLaneChangeToLeft
	BehaviorLaneChangeToRight
)

var behaviorNames = map[Behavior]string{
	BehaviorNone:              "none",
	BehaviorBraking:           "braking",
	BehaviorLaneChangeToLeft:  "lane_change_to_left",
	BehaviorLaneChangeToRight: "lane_change_to_right",
}

func (b Behavior) String() string {
	if name, ok := behaviorNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Behavior(%d)", int(b))
}

// IsLaneChange reports whether b moves the vehicle across lanes.
func (b Behavior) IsLaneChange() bool {
	return b == BehaviorLaneChangeToLeft || b == BehaviorLaneChangeToRight
}

// outputBehaviors maps output nodes to the behavior they predict. A vehicle
// cutting in from the ego's left moves to its own right.
var outputBehaviors = map[string]Behavior{
	rules.NodePredictedBraking:    BehaviorBraking,
	rules.NodePredictedLeftCutIn:  BehaviorLaneChangeToRight,
	rules.NodePredictedRightCutIn: BehaviorLaneChangeToLeft,
}

// BehaviorFor returns the behavior predicted by an output node, BehaviorNone
// for nodes without one.
func BehaviorFor(node string) Behavior {
	return outputBehaviors[node]
}

// DefaultRoleModels is the role to model table of the built-in models.
func DefaultRoleModels() map[string]string {
	return map[string]string{
		situation.RoleFront.String():             rules.ModelLaneFollow,
		situation.RoleFrontInLaneChange.String(): rules.ModelLaneFollow,
		situation.RoleSideLeft.String():          rules.ModelCutInFromLeft,
		situation.RoleSideRight.String():         rules.ModelCutInFromRight,
	}
}

// RoleModels resolves a role name to model table into role tags.
func RoleModels(table map[string]string) (map[situation.RoleTag]string, error) {
	out := make(map[situation.RoleTag]string, len(table))
	names := lo.Keys(table)
	sort.Strings(names)
	for _, name := range names {
		tag, err := situation.ParseRoleTag(name)
		if err != nil {
			return nil, fmt.Errorf("inference.role_models: %w", err)
		}
		if tag == situation.RoleNone || tag == situation.RoleEgo || tag == situation.RoleUnknown {
			return nil, fmt.Errorf("inference.role_models: role %q cannot have a model", name)
		}
		if table[name] == "" {
			return nil, fmt.Errorf("inference.role_models: empty model for role %q", name)
		}
		out[tag] = table[name]
	}
	return out, nil
}
