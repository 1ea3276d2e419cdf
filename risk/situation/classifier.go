package situation

import (
	"fmt"
	"math"
	"sort"

	"github.com/inference-sim/collision-risk/risk/geom"
	"github.com/inference-sim/collision-risk/risk/scene"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// SensingParams configures the sensing areas and the lane-following check.
type SensingParams struct {
	FrontTimeGap        float64 `yaml:"front_time_gap"`        // seconds of travel covered by the front area
	MinFrontDistance    float64 `yaml:"min_front_distance"`    // below this the front area is absent
	WaypointDistance    float64 `yaml:"waypoint_distance"`     // spacing of area waypoints
	SideLength          float64 `yaml:"side_length"`           // length of the side area
	BufferRadius        float64 `yaml:"buffer_radius"`         // half width of both areas
	MaxHeadingDeviation float64 `yaml:"max_heading_deviation"` // degrees
	MaxCenterDistance   float64 `yaml:"max_center_distance"`   // meters from the lane centerline
}

// DefaultSensingParams returns the thresholds used for Town03.
func DefaultSensingParams() SensingParams {
	return SensingParams{
		FrontTimeGap:        2,
		MinFrontDistance:    1,
		WaypointDistance:    1,
		SideLength:          15,
		BufferRadius:        1.5,
		MaxHeadingDeviation: 10,
		MaxCenterDistance:   1.75,
	}
}

// Validate checks that every threshold is usable.
func (p SensingParams) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"front_time_gap", p.FrontTimeGap},
		{"waypoint_distance", p.WaypointDistance},
		{"side_length", p.SideLength},
		{"buffer_radius", p.BufferRadius},
		{"max_heading_deviation", p.MaxHeadingDeviation},
		{"max_center_distance", p.MaxCenterDistance},
	}
	for _, c := range checks {
		if c.value <= 0 || math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return fmt.Errorf("sensing.%s must be a finite positive number, got %f", c.name, c.value)
		}
	}
	if p.MinFrontDistance < 0 {
		return fmt.Errorf("sensing.min_front_distance must be >= 0, got %f", p.MinFrontDistance)
	}
	return nil
}

// SensingAreas are the ego's areas for one tick. A nil polygon means the
// area is absent.
type SensingAreas struct {
	Front    orb.Polygon
	Side     orb.Polygon
	SideLane Lane
}

// Assignment is the classifier output for one tick.
type Assignment struct {
	EgoID    int
	EgoClass string // empty when the ego is outside every class
	EgoLane  Lane
	Areas    SensingAreas
	// Roles holds the ego and every sensed vehicle. Vehicles sensed in no
	// area are absent.
	Roles map[int]RoleTag
}

// Role returns the tag of a vehicle, RoleNone if it was not sensed.
func (a Assignment) Role(id int) RoleTag {
	if t, ok := a.Roles[id]; ok {
		return t
	}
	return RoleNone
}

// Relevant returns the ids of the non-ego vehicles with a role, ascending.
func (a Assignment) Relevant() []int {
	ids := lo.Filter(lo.Keys(a.Roles), func(id int, _ int) bool { return id != a.EgoID })
	sort.Ints(ids)
	return ids
}

// Classifier derives role tags from situation classes and sensing areas.
type Classifier struct {
	registry *Registry
	roads    scene.Map
	params   SensingParams
}

// NewClassifier wires a classifier to its class registry and map service.
func NewClassifier(registry *Registry, roads scene.Map, params SensingParams) *Classifier {
	return &Classifier{registry: registry, roads: roads, params: params}
}

// Registry returns the class registry, repopulated by every Assign.
func (c *Classifier) Registry() *Registry {
	return c.registry
}

// Assign clears and repopulates the class registry from the snapshot, then
// tags the vehicles around the ego. Only two-lane following classes carry
// roles; elsewhere just the ego is tagged.
func (c *Classifier) Assign(snap scene.Snapshot) Assignment {
	c.registry.Clear()
	c.registry.Update(snap.Vehicles())

	ego := snap.Ego
	out := Assignment{EgoID: ego.ID, Roles: map[int]RoleTag{ego.ID: RoleEgo}}
	class, ok := c.registry.ClassOf(ego.ID)
	if !ok {
		return out
	}
	out.EgoClass = class.Name
	if class.Kind != KindTwoLaneFollowing {
		logrus.Debugf("ego %d in %s: no roles for %s", ego.ID, class.Name, class.Kind)
		return out
	}
	out.EgoLane = class.LaneOf(ego.ReferencePoint(scene.FrontMidCenter).Point())
	if out.EgoLane == LaneNotSpecified {
		logrus.Debugf("ego %d in %s outside both lanes", ego.ID, class.Name)
		return out
	}

	tags := map[int][]RoleTag{}
	out.Areas.Front = c.FrontArea(ego)
	for _, v := range c.sensed(out.Areas.Front, snap.Others) {
		tag := RoleUnknown
		if c.FollowsLane(v) {
			tag = RoleFront
		}
		tags[v.ID] = append(tags[v.ID], tag)
	}

	out.Areas.SideLane = out.EgoLane.Other()
	side, sideTag := scene.SideLeft, RoleSideLeft
	if out.Areas.SideLane == LaneRight {
		side, sideTag = scene.SideRight, RoleSideRight
	}
	out.Areas.Side = c.SideArea(ego, side)
	for _, v := range c.sensed(out.Areas.Side, snap.Others) {
		tag := RoleUnknown
		if c.FollowsLane(v) {
			tag = sideTag
		}
		tags[v.ID] = append(tags[v.ID], tag)
	}

	for id, t := range tags {
		out.Roles[id] = resolve(t)
	}
	logrus.Debugf("tick %d: ego %d in %s/%s, roles %v", snap.Tick, ego.ID, class.Name, out.EgoLane, out.Roles)
	return out
}

func (c *Classifier) sensed(area orb.Polygon, vehicles []scene.Vehicle) []scene.Vehicle {
	if area == nil {
		return nil
	}
	return lo.Filter(vehicles, func(v scene.Vehicle, _ int) bool {
		pts := lo.Map(v.ReferencePoints(), func(l scene.Location, _ int) orb.Point { return l.Point() })
		return geom.ContainsAny(area, pts)
	})
}

// FrontArea is the corridor along the ego lane covering FrontTimeGap
// seconds of travel. Returns nil when the ego is too slow or the lane ends.
func (c *Classifier) FrontArea(ego scene.Vehicle) orb.Polygon {
	distance := ego.Speed() * c.params.FrontTimeGap
	if distance < c.params.MinFrontDistance {
		return nil
	}
	wp, err := c.roads.Waypoint(ego.ReferencePoint(scene.FrontMidCenter))
	if err != nil {
		return nil
	}
	n := int(math.Round(distance / c.params.WaypointDistance))
	line := c.walk(wp.Location, c.params.WaypointDistance, n)
	if len(line) < 2 {
		return nil
	}
	return geom.BufferLine(line, c.params.BufferRadius)
}

// SideArea is the corridor on the neighbouring lane, centered abreast of
// the ego and SideLength long.
func (c *Classifier) SideArea(ego scene.Vehicle, side scene.LaneSide) orb.Polygon {
	start, err := c.roads.LanePoint(ego.Location(), side)
	if err != nil {
		return nil
	}
	n := int(math.Round(c.params.SideLength / c.params.WaypointDistance))
	if n%2 != 0 {
		n++
	}
	back := c.walk(start, -c.params.WaypointDistance, n/2)
	line := make(orb.LineString, 0, n+1)
	for i := len(back) - 1; i >= 0; i-- {
		line = append(line, back[i])
	}
	line = append(line, start.Point())
	line = append(line, c.walk(start, c.params.WaypointDistance, n/2)...)
	if len(line) < 2 {
		return nil
	}
	return geom.BufferLine(line, c.params.BufferRadius)
}

// walk collects up to n lane points spaced step apart, excluding the start.
// It stops early where the lane ends.
func (c *Classifier) walk(from scene.Location, step float64, n int) orb.LineString {
	var line orb.LineString
	cur := from
	for i := 0; i < n; i++ {
		next, err := c.roads.NextPointOnLane(cur, step)
		if err != nil {
			break
		}
		line = append(line, next.Point())
		cur = next
	}
	return line
}

// FollowsLane reports whether the vehicle is aligned with its lane and close
// to the lane centerline.
func (c *Classifier) FollowsLane(v scene.Vehicle) bool {
	center, err := c.roads.Waypoint(v.Location())
	if err != nil {
		return false
	}
	if geom.HeadingDeviation(center.Yaw, v.Pose.Yaw) >= c.params.MaxHeadingDeviation {
		return false
	}
	dists := []float64{center.Location.Distance(v.Location())}
	for _, p := range []scene.ReferencePoint{scene.FrontMidCenter, scene.RearMidCenter} {
		loc := v.ReferencePoint(p)
		wp, err := c.roads.Waypoint(loc)
		if err != nil {
			return false
		}
		dists = append(dists, wp.Location.Distance(loc))
	}
	return geom.Median(dists) < c.params.MaxCenterDistance
}
