package situation

import "fmt"

// RoleTag is the interaction role of a vehicle relative to the ego.
type RoleTag int

const (
	RoleNone RoleTag = iota
	RoleEgo
	RoleFront
	RoleFrontInLaneChange
	RoleSideLeft
	RoleSideRight
	RoleUnknown
)

var roleNames = map[RoleTag]string{
	RoleNone:              "none",
	RoleEgo:               "ego",
	RoleFront:             "front",
	RoleFrontInLaneChange: "front_in_lane_change",
	RoleSideLeft:          "side_left",
	RoleSideRight:         "side_right",
	RoleUnknown:           "unknown",
}

func (r RoleTag) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RoleTag(%d)", int(r))
}

// ParseRoleTag maps a role name (as printed by String) back to its tag.
func ParseRoleTag(s string) (RoleTag, error) {
	for tag, name := range roleNames {
		if name == s {
			return tag, nil
		}
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}

// IsFront reports whether the role concerns the vehicle ahead in the ego lane.
func (r RoleTag) IsFront() bool {
	return r == RoleFront || r == RoleFrontInLaneChange
}

// resolve folds the tags collected for one vehicle into a single role. A
// vehicle seen both ahead and beside the ego is changing lanes in front of
// it; any other combination is ambiguous.
func resolve(tags []RoleTag) RoleTag {
	seen := map[RoleTag]bool{}
	var uniq []RoleTag
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			uniq = append(uniq, t)
		}
	}
	switch len(uniq) {
	case 0:
		return RoleNone
	case 1:
		return uniq[0]
	case 2:
		if seen[RoleFront] && (seen[RoleSideLeft] || seen[RoleSideRight]) {
			return RoleFrontInLaneChange
		}
	}
	return RoleUnknown
}
