package scene

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoWaypoint is returned when a map query falls outside the lane graph.
var ErrNoWaypoint = errors.New("no waypoint at location")

// LaneSide selects a neighbouring lane.
type LaneSide int

const (
	SideLeft LaneSide = iota
	SideRight
)

func (s LaneSide) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Waypoint is the nearest lane-centerline sample to a queried location.
type Waypoint struct {
	Location          Location
	Yaw               float64 // lane heading in degrees
	LaneID            int
	LaneWidth         float64
	DistanceToLaneEnd float64
}

// Map is the lane/waypoint service consumed by the classifier, the evidence
// feature extraction and the pipeline.
type Map interface {
	// Waypoint returns the nearest lane-centerline point to loc.
	Waypoint(loc Location) (Waypoint, error)
	// NextPointOnLane returns the centerline point dist meters further along the
	// lane of loc. Negative distances walk backwards.
	NextPointOnLane(loc Location, dist float64) (Location, error)
	// LanePoint returns the centerline point of the lane on the given side of
	// the lane of loc, at the same longitudinal position.
	LanePoint(loc Location, side LaneSide) (Location, error)
}

// StraightRoad is an in-memory map of parallel straight lanes. Lane 0 is the
// rightmost lane relative to Heading; Origin is on the road's right edge.
type StraightRoad struct {
	Origin    Location `yaml:"origin"`
	Heading   float64  `yaml:"heading"`
	LaneWidth float64  `yaml:"lane_width"`
	Lanes     int      `yaml:"lanes"`
	Length    float64  `yaml:"length"`
}

// Validate checks the road geometry.
func (r StraightRoad) Validate() error {
	if r.LaneWidth <= 0 {
		return fmt.Errorf("road.lane_width must be positive, got %f", r.LaneWidth)
	}
	if r.Lanes < 1 {
		return fmt.Errorf("road.lanes must be at least 1, got %d", r.Lanes)
	}
	if r.Length <= 0 {
		return fmt.Errorf("road.length must be positive, got %f", r.Length)
	}
	return nil
}

func (r StraightRoad) axes() (fwd, left Vector) {
	p := Pose{Yaw: r.Heading}
	return p.Forward(), p.Left()
}

// project returns the longitudinal and lateral road coordinates of loc.
func (r StraightRoad) project(loc Location) (s, d float64) {
	fwd, left := r.axes()
	dx, dy := loc.X-r.Origin.X, loc.Y-r.Origin.Y
	return dx*fwd.X + dy*fwd.Y, dx*left.X + dy*left.Y
}

func (r StraightRoad) at(s float64, lane int) Location {
	fwd, left := r.axes()
	return r.Origin.Add(fwd, s).Add(left, (float64(lane)+0.5)*r.LaneWidth)
}

func (r StraightRoad) lane(loc Location) (s float64, lane int, err error) {
	s, d := r.project(loc)
	if s < 0 || s > r.Length || d < 0 || d > float64(r.Lanes)*r.LaneWidth {
		return 0, 0, fmt.Errorf("%w: (%.2f, %.2f)", ErrNoWaypoint, loc.X, loc.Y)
	}
	lane = int(math.Floor(d / r.LaneWidth))
	if lane == r.Lanes {
		lane--
	}
	return s, lane, nil
}

// Waypoint implements Map.
func (r StraightRoad) Waypoint(loc Location) (Waypoint, error) {
	s, lane, err := r.lane(loc)
	if err != nil {
		return Waypoint{}, err
	}
	return Waypoint{
		Location:          r.at(s, lane),
		Yaw:               r.Heading,
		LaneID:            lane,
		LaneWidth:         r.LaneWidth,
		DistanceToLaneEnd: r.Length - s,
	}, nil
}

// NextPointOnLane implements Map.
func (r StraightRoad) NextPointOnLane(loc Location, dist float64) (Location, error) {
	s, lane, err := r.lane(loc)
	if err != nil {
		return Location{}, err
	}
	next := s + dist
	if next < 0 || next > r.Length {
		return Location{}, fmt.Errorf("%w: %.1f m along lane %d", ErrNoWaypoint, next, lane)
	}
	return r.at(next, lane), nil
}

// LanePoint implements Map.
func (r StraightRoad) LanePoint(loc Location, side LaneSide) (Location, error) {
	s, lane, err := r.lane(loc)
	if err != nil {
		return Location{}, err
	}
	target := lane - 1
	if side == SideLeft {
		target = lane + 1
	}
	if target < 0 || target >= r.Lanes {
		return Location{}, fmt.Errorf("%w: no %s lane next to lane %d", ErrNoWaypoint, side, lane)
	}
	return r.at(s, target), nil
}

// LaneBounds returns the four corners of lane i, counter-clockwise from the
// start of its right edge.
func (r StraightRoad) LaneBounds(i int) [4]Location {
	fwd, left := r.axes()
	right := r.Origin.Add(left, float64(i)*r.LaneWidth)
	leftEdge := r.Origin.Add(left, float64(i+1)*r.LaneWidth)
	return [4]Location{
		right,
		right.Add(fwd, r.Length),
		leftEdge.Add(fwd, r.Length),
		leftEdge,
	}
}
