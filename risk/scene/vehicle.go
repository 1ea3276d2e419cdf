package scene

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Location is a point on the top-down ground plane, in meters.
type Location struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Point converts the location to an orb point for geometry predicates.
func (l Location) Point() orb.Point {
	return orb.Point{l.X, l.Y}
}

// Distance returns the 2-D Euclidean distance between two locations.
func (l Location) Distance(o Location) float64 {
	return math.Hypot(o.X-l.X, o.Y-l.Y)
}

// Add returns l shifted by v scaled by k.
func (l Location) Add(v Vector, k float64) Location {
	return Location{X: l.X + v.X*k, Y: l.Y + v.Y*k}
}

// Vector is a 2-D velocity, acceleration or direction.
type Vector struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Norm returns the vector length.
func (v Vector) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Pose is a location plus a heading in degrees, counter-clockwise from +x.
type Pose struct {
	Location Location
	Yaw      float64
}

// Forward returns the unit vector along the heading.
func (p Pose) Forward() Vector {
	rad := p.Yaw * math.Pi / 180
	return Vector{X: math.Cos(rad), Y: math.Sin(rad)}
}

// Left returns the unit vector pointing to the left of the heading.
func (p Pose) Left() Vector {
	rad := p.Yaw * math.Pi / 180
	return Vector{X: -math.Sin(rad), Y: math.Cos(rad)}
}

// LightState is a bitmask of the vehicle's signalling lights.
type LightState uint8

const (
	LightLeftBlinker LightState = 1 << iota
	LightRightBlinker
)

// Has reports whether all bits of flag are set.
func (s LightState) Has(flag LightState) bool {
	return s&flag == flag
}

// Vehicle is one traffic participant as seen in a single tick. Vehicles are
// values: they are rebuilt from every snapshot and never mutated afterwards.
type Vehicle struct {
	ID           int
	Role         string // scenario role name, e.g. "hero" or "adversary1"
	Length       float64
	Width        float64
	Pose         Pose
	Velocity     Vector
	Acceleration Vector
	Lights       LightState
}

// Speed returns the magnitude of the velocity vector.
func (v Vehicle) Speed() float64 {
	return v.Velocity.Norm()
}

// Location returns the bounding-box center.
func (v Vehicle) Location() Location {
	return v.Pose.Location
}

// ReferencePoint names one of the eight mid points on the bounding-box outline.
type ReferencePoint int

const (
	FrontMidLeft ReferencePoint = iota
	FrontMidCenter
	FrontMidRight
	RearMidLeft
	RearMidCenter
	RearMidRight
	CenterMidLeft
	CenterMidRight
)

// AllReferencePoints lists the reference points in declaration order.
var AllReferencePoints = []ReferencePoint{
	FrontMidLeft, FrontMidCenter, FrontMidRight,
	RearMidLeft, RearMidCenter, RearMidRight,
	CenterMidLeft, CenterMidRight,
}

var referencePointNames = map[ReferencePoint]string{
	FrontMidLeft:   "FRONT_MID_LEFT",
	FrontMidCenter: "FRONT_MID_CENTER",
	FrontMidRight:  "FRONT_MID_RIGHT",
	RearMidLeft:    "REAR_MID_LEFT",
	RearMidCenter:  "REAR_MID_CENTER",
	RearMidRight:   "REAR_MID_RIGHT",
	CenterMidLeft:  "CENTER_MID_LEFT",
	CenterMidRight: "CENTER_MID_RIGHT",
}

func (r ReferencePoint) String() string {
	if name, ok := referencePointNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ReferencePoint(%d)", int(r))
}

// ReferencePoint returns the world location of the given bounding-box mid point.
// Left/right mid points on the front and rear edges sit halfway between the
// edge center and the corner.
func (v Vehicle) ReferencePoint(p ReferencePoint) Location {
	fwd := v.Pose.Forward()
	left := v.Pose.Left()
	halfL := v.Length / 2
	halfW := v.Width / 2

	var long, lat float64
	switch p {
	case FrontMidLeft:
		long, lat = halfL, halfW/2
	case FrontMidCenter:
		long, lat = halfL, 0
	case FrontMidRight:
		long, lat = halfL, -halfW/2
	case RearMidLeft:
		long, lat = -halfL, halfW/2
	case RearMidCenter:
		long, lat = -halfL, 0
	case RearMidRight:
		long, lat = -halfL, -halfW/2
	case CenterMidLeft:
		long, lat = 0, halfW
	case CenterMidRight:
		long, lat = 0, -halfW
	}
	return v.Pose.Location.Add(fwd, long).Add(left, lat)
}

// ReferencePoints returns all eight reference points in AllReferencePoints order.
func (v Vehicle) ReferencePoints() []Location {
	out := make([]Location, len(AllReferencePoints))
	for i, p := range AllReferencePoints {
		out[i] = v.ReferencePoint(p)
	}
	return out
}
