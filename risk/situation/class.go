// Package situation models the situation classes a vehicle can be in (a
// two-lane road segment, a four-way junction) and assigns interaction roles
// to the vehicles around the ego.
//
// # Reading Guide
//
//   - class.go: the Class tagged variant and per-tick Occupancy
//   - registry.go: the class set, membership updates and lookups
//   - town03.go: static class data for the Town03 map
//   - role.go, classifier.go: sensing areas and role tags
package situation

import (
	"fmt"
	"strings"

	"github.com/inference-sim/collision-risk/risk/geom"
	"github.com/inference-sim/collision-risk/risk/scene"
	"github.com/paulmach/orb"
)

// Kind discriminates the Class variants.
type Kind int

const (
	KindTwoLaneFollowing Kind = iota
	KindFourWayJunction
)

func (k Kind) String() string {
	switch k {
	case KindTwoLaneFollowing:
		return "TwoLaneFollowing"
	case KindFourWayJunction:
		return "FourWayJunction"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Lane identifies a lane inside a two-lane following class.
type Lane int

const (
	LaneNotSpecified Lane = iota
	LaneLeft
	LaneRight
)

func (l Lane) String() string {
	switch l {
	case LaneLeft:
		return "left"
	case LaneRight:
		return "right"
	}
	return "unspecified"
}

// Other returns the opposite lane. LaneNotSpecified has no opposite.
func (l Lane) Other() Lane {
	switch l {
	case LaneLeft:
		return LaneRight
	case LaneRight:
		return LaneLeft
	}
	return LaneNotSpecified
}

// RoadEnd names one of the four corners of a road segment. Links between
// classes are stored per end, in the same order as the map data.
type RoadEnd string

// TwoLaneFollowing is the payload of a KindTwoLaneFollowing class.
type TwoLaneFollowing struct {
	Left  orb.Polygon
	Right orb.Polygon
}

// Class is a static region of the map with a kind-specific payload. Classes
// are immutable after construction; per-tick membership lives in Occupancy.
type Class struct {
	Name string
	Kind Kind
	Area orb.Polygon
	// Successors and Predecessors link to other classes by name, keyed by
	// the road end they attach to.
	Successors   map[RoadEnd][]string
	Predecessors map[RoadEnd][]string

	// TwoLane is set iff Kind == KindTwoLaneFollowing.
	TwoLane *TwoLaneFollowing
}

// Validate checks that the variant payload matches the kind.
func (c Class) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("situation class: name must not be empty")
	}
	if len(c.Area) == 0 || len(c.Area[0]) < 4 {
		return fmt.Errorf("situation class %s: area needs at least three corners", c.Name)
	}
	switch c.Kind {
	case KindTwoLaneFollowing:
		if c.TwoLane == nil || len(c.TwoLane.Left) == 0 || len(c.TwoLane.Right) == 0 {
			return fmt.Errorf("situation class %s: two-lane following needs left and right lane polygons", c.Name)
		}
	case KindFourWayJunction:
		if c.TwoLane != nil {
			return fmt.Errorf("situation class %s: four-way junction must not carry lane polygons", c.Name)
		}
	default:
		return fmt.Errorf("situation class %s: unknown kind %d", c.Name, int(c.Kind))
	}
	return nil
}

// Contains reports whether p lies inside the class area.
func (c Class) Contains(p orb.Point) bool {
	return geom.Contains(c.Area, p)
}

// LaneOf returns the lane containing p. Classes without lanes, and points
// outside both lane polygons, give LaneNotSpecified.
func (c Class) LaneOf(p orb.Point) Lane {
	if c.TwoLane == nil {
		return LaneNotSpecified
	}
	switch {
	case geom.Contains(c.TwoLane.Left, p):
		return LaneLeft
	case geom.Contains(c.TwoLane.Right, p):
		return LaneRight
	}
	return LaneNotSpecified
}

// Describe renders a one-line summary of the class.
func (c Class) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", c.Name, c.Kind)
	if ring := outer(c.Area); len(ring) > 0 {
		bound := ring.Bound()
		fmt.Fprintf(&b, " bounds=[(%.1f, %.1f) (%.1f, %.1f)]", bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1])
	}
	if next := links(c.Successors); next != "" {
		fmt.Fprintf(&b, " next=%s", next)
	}
	if prev := links(c.Predecessors); prev != "" {
		fmt.Fprintf(&b, " prev=%s", prev)
	}
	return b.String()
}

func outer(p orb.Polygon) orb.Ring {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

// links flattens per-end links into a sorted, de-duplicated name list.
func links(m map[RoadEnd][]string) string {
	seen := map[string]bool{}
	var names []string
	for _, end := range sortedEnds(m) {
		for _, n := range m[end] {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return strings.Join(names, ",")
}

// Occupancy is the per-tick membership of one class.
type Occupancy struct {
	Vehicles []scene.Vehicle
	// Lanes groups the vehicles of a two-lane class by lane.
	Lanes map[Lane][]scene.Vehicle
}

func (o *Occupancy) add(c Class, v scene.Vehicle) {
	o.Vehicles = append(o.Vehicles, v)
	if c.Kind != KindTwoLaneFollowing {
		return
	}
	if o.Lanes == nil {
		o.Lanes = map[Lane][]scene.Vehicle{}
	}
	lane := c.LaneOf(v.ReferencePoint(scene.FrontMidCenter).Point())
	o.Lanes[lane] = append(o.Lanes[lane], v)
}

// FromRoad builds a two-lane following class covering a two-lane
// StraightRoad. Lane 0 of the road is the right lane.
func FromRoad(name string, road scene.StraightRoad) (Class, error) {
	if err := road.Validate(); err != nil {
		return Class{}, err
	}
	if road.Lanes != 2 {
		return Class{}, fmt.Errorf("situation class %s: two-lane following needs a road with 2 lanes, got %d", name, road.Lanes)
	}
	right := road.LaneBounds(0)
	left := road.LaneBounds(1)
	return Class{
		Name: name,
		Kind: KindTwoLaneFollowing,
		Area: ring(right[0], right[1], left[2], left[3]),
		TwoLane: &TwoLaneFollowing{
			Left:  ring(left[:]...),
			Right: ring(right[:]...),
		},
	}, nil
}

func ring(locs ...scene.Location) orb.Polygon {
	pts := make([]orb.Point, len(locs))
	for i, l := range locs {
		pts[i] = l.Point()
	}
	return geom.Polygon(pts...)
}
