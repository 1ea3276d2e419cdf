package situation

import (
	"fmt"
	"sort"

	"github.com/inference-sim/collision-risk/risk/scene"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Registry holds the static classes of a map and their per-tick occupancy.
// Not thread-safe: Update and the lookups run on the tick goroutine.
type Registry struct {
	classes   []Class
	byName    map[string]int
	occupancy []Occupancy
	vehicleOf map[int]int // vehicle id -> class index
}

// NewRegistry validates the classes and their links.
func NewRegistry(classes []Class) (*Registry, error) {
	r := &Registry{
		classes:   append([]Class(nil), classes...),
		byName:    make(map[string]int, len(classes)),
		occupancy: make([]Occupancy, len(classes)),
		vehicleOf: map[int]int{},
	}
	for i, c := range r.classes {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("situation class %s: duplicate name", c.Name)
		}
		r.byName[c.Name] = i
	}
	for _, c := range r.classes {
		for _, m := range []map[RoadEnd][]string{c.Successors, c.Predecessors} {
			for end, names := range m {
				for _, n := range names {
					if _, ok := r.byName[n]; !ok {
						return nil, fmt.Errorf("situation class %s: end %s links to unknown class %q", c.Name, end, n)
					}
				}
			}
		}
	}
	return r, nil
}

// Classes returns the registered classes in registration order.
func (r *Registry) Classes() []Class {
	return r.classes
}

// Class looks up a class by name.
func (r *Registry) Class(name string) (Class, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Class{}, false
	}
	return r.classes[i], true
}

// Clear drops all per-tick membership.
func (r *Registry) Clear() {
	for i := range r.occupancy {
		r.occupancy[i] = Occupancy{}
	}
	r.vehicleOf = map[int]int{}
}

// Update classifies every vehicle and records its membership. A vehicle
// whose front center is in zero or several classes is retried one meter
// along its heading; if that is still ambiguous it stays unassigned.
func (r *Registry) Update(vehicles []scene.Vehicle) {
	for _, v := range vehicles {
		idx, ok := r.classify(v)
		if !ok {
			continue
		}
		r.vehicleOf[v.ID] = idx
		r.occupancy[idx].add(r.classes[idx], v)
	}
}

func (r *Registry) classify(v scene.Vehicle) (int, bool) {
	front := v.ReferencePoint(scene.FrontMidCenter)
	matches := r.matching(front.Point())
	if len(matches) != 1 {
		matches = r.matching(front.Add(v.Pose.Forward(), 1).Point())
	}
	switch len(matches) {
	case 1:
		return matches[0], true
	case 0:
		logrus.Debugf("vehicle %d is outside every situation class", v.ID)
	default:
		names := lo.Map(matches, func(i int, _ int) string { return r.classes[i].Name })
		logrus.Warnf("vehicle %d matches %d situation classes %v; leaving it unassigned", v.ID, len(matches), names)
	}
	return 0, false
}

func (r *Registry) matching(p orb.Point) []int {
	var out []int
	for i, c := range r.classes {
		if c.Contains(p) {
			out = append(out, i)
		}
	}
	return out
}

// ClassOf returns the class the vehicle was assigned to by the last Update.
func (r *Registry) ClassOf(vehicleID int) (Class, bool) {
	i, ok := r.vehicleOf[vehicleID]
	if !ok {
		return Class{}, false
	}
	return r.classes[i], true
}

// Occupancy returns the membership of the named class for the current tick.
func (r *Registry) Occupancy(name string) (Occupancy, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Occupancy{}, false
	}
	return r.occupancy[i], true
}

func sortedEnds(m map[RoadEnd][]string) []RoadEnd {
	ends := lo.Keys(m)
	sort.Slice(ends, func(i, j int) bool { return ends[i] < ends[j] })
	return ends
}
