package scene

import (
	"context"
)

// Environment holds the ambient conditions of the scene.
type Environment struct {
	// Precipitation intensity on a 0..100 scale.
	Precipitation float64 `yaml:"precipitation"`
}

// Snapshot is the consistent world state supplied once per tick.
type Snapshot struct {
	Tick        int
	Ego         Vehicle
	Others      []Vehicle
	Environment Environment
}

// Vehicles returns the ego followed by all other vehicles.
func (s Snapshot) Vehicles() []Vehicle {
	all := make([]Vehicle, 0, len(s.Others)+1)
	all = append(all, s.Ego)
	return append(all, s.Others...)
}

// Other looks up a non-ego vehicle by id.
func (s Snapshot) Other(id int) (Vehicle, bool) {
	for _, v := range s.Others {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// WorldProvider supplies world snapshots, one per tick. Next returns io.EOF
// once the source is exhausted.
type WorldProvider interface {
	Next(ctx context.Context) (Snapshot, error)
}

// Ahead returns the nearest vehicle in front of v along v's heading whose
// lateral offset from v's axis is below lateralTolerance. The ego counts as
// a candidate too.
func (s Snapshot) Ahead(v Vehicle, lateralTolerance float64) (Vehicle, bool) {
	fwd, left := v.Pose.Forward(), v.Pose.Left()
	var best Vehicle
	bestS := 0.0
	found := false
	for _, o := range s.Vehicles() {
		if o.ID == v.ID {
			continue
		}
		dx, dy := o.Pose.Location.X-v.Pose.Location.X, o.Pose.Location.Y-v.Pose.Location.Y
		long := dx*fwd.X + dy*fwd.Y
		lat := dx*left.X + dy*left.Y
		if long <= 0 || lat >= lateralTolerance || lat <= -lateralTolerance {
			continue
		}
		if !found || long < bestS {
			best, bestS, found = o, long, true
		}
	}
	return best, found
}
