package scene

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted traffic scene on a straight road, replayed tick by
// tick as a WorldProvider. Loaded from YAML via LoadScenario(path).
type Scenario struct {
	Version      string        `yaml:"version"`
	TickDuration float64       `yaml:"tick_duration"` // seconds between snapshots
	Ticks        int           `yaml:"ticks"`
	Road         StraightRoad  `yaml:"road"`
	Environment  Environment   `yaml:"environment"`
	Ego          VehicleSpec   `yaml:"ego"`
	Vehicles     []VehicleSpec `yaml:"vehicles"`

	// StopLine, when set, replaces the configured braking target.
	StopLine *Location `yaml:"stop_line,omitempty"`
}

// VehicleSpec is the initial state of one scenario vehicle. When Lane and S are
// both set they override Position with the lane-centerline point S meters
// along the road.
type VehicleSpec struct {
	ID           int      `yaml:"id"`
	Role         string   `yaml:"role"`
	Length       float64  `yaml:"length"`
	Width        float64  `yaml:"width"`
	Position     Location `yaml:"position,omitempty"`
	Lane         *int     `yaml:"lane,omitempty"`
	S            *float64 `yaml:"s,omitempty"`
	LateralShift float64  `yaml:"lateral_shift,omitempty"` // meters to the left of the lane center
	Yaw          *float64 `yaml:"yaw,omitempty"`            // defaults to the road heading
	Speed        float64  `yaml:"speed,omitempty"`          // along the yaw; ignored when Velocity is set
	Velocity     *Vector  `yaml:"velocity,omitempty"`
	Acceleration Vector   `yaml:"acceleration,omitempty"`
	Blinker      string   `yaml:"blinker,omitempty"`
}

var validBlinkers = map[string]LightState{
	"":      0,
	"none":  0,
	"left":  LightLeftBlinker,
	"right": LightRightBlinker,
}

// LoadScenario reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario from YAML bytes with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &s, nil
}

// Validate checks that all fields in the scenario are valid.
func (s *Scenario) Validate() error {
	if s.TickDuration <= 0 || math.IsNaN(s.TickDuration) || math.IsInf(s.TickDuration, 0) {
		return fmt.Errorf("tick_duration must be a finite positive number, got %f", s.TickDuration)
	}
	if s.Ticks < 1 {
		return fmt.Errorf("ticks must be at least 1, got %d", s.Ticks)
	}
	if err := s.Road.Validate(); err != nil {
		return err
	}
	seen := map[int]bool{}
	specs := append([]VehicleSpec{s.Ego}, s.Vehicles...)
	for i, v := range specs {
		prefix := "ego"
		if i > 0 {
			prefix = fmt.Sprintf("vehicles[%d]", i-1)
		}
		if seen[v.ID] {
			return fmt.Errorf("%s: duplicate vehicle id %d", prefix, v.ID)
		}
		seen[v.ID] = true
		if v.Length <= 0 || v.Width <= 0 {
			return fmt.Errorf("%s: length and width must be positive, got %f x %f", prefix, v.Length, v.Width)
		}
		if _, ok := validBlinkers[v.Blinker]; !ok {
			return fmt.Errorf("%s: unknown blinker %q; valid: none, left, right", prefix, v.Blinker)
		}
		if (v.Lane == nil) != (v.S == nil) {
			return fmt.Errorf("%s: lane and s must be set together", prefix)
		}
		if v.Lane != nil && (*v.Lane < 0 || *v.Lane >= s.Road.Lanes) {
			return fmt.Errorf("%s: lane %d outside road with %d lanes", prefix, *v.Lane, s.Road.Lanes)
		}
	}
	return nil
}

// vehicle materializes the initial vehicle state from its spec.
func (s *Scenario) vehicle(spec VehicleSpec) Vehicle {
	yaw := s.Road.Heading
	if spec.Yaw != nil {
		yaw = *spec.Yaw
	}
	pose := Pose{Location: spec.Position, Yaw: yaw}
	if spec.Lane != nil && spec.S != nil {
		_, left := s.Road.axes()
		pose.Location = s.Road.at(*spec.S, *spec.Lane).Add(left, spec.LateralShift)
	}
	vel := pose.Forward()
	vel = Vector{X: vel.X * spec.Speed, Y: vel.Y * spec.Speed}
	if spec.Velocity != nil {
		vel = *spec.Velocity
	}
	return Vehicle{
		ID:           spec.ID,
		Role:         spec.Role,
		Length:       spec.Length,
		Width:        spec.Width,
		Pose:         pose,
		Velocity:     vel,
		Acceleration: spec.Acceleration,
		Lights:       validBlinkers[spec.Blinker],
	}
}

// ScenarioReplay replays a Scenario, advancing every vehicle with constant
// acceleration between ticks. Not thread-safe.
type ScenarioReplay struct {
	scenario *Scenario
	tick     int
	ego      Vehicle
	others   []Vehicle
}

// NewScenarioReplay creates a replay positioned at tick 0.
func NewScenarioReplay(s *Scenario) *ScenarioReplay {
	r := &ScenarioReplay{scenario: s, ego: s.vehicle(s.Ego)}
	for _, spec := range s.Vehicles {
		r.others = append(r.others, s.vehicle(spec))
	}
	return r
}

// Map returns the scenario's road as a lane/waypoint service.
func (r *ScenarioReplay) Map() Map {
	return r.scenario.Road
}

// Next implements WorldProvider.
func (r *ScenarioReplay) Next(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if r.tick >= r.scenario.Ticks {
		return Snapshot{}, io.EOF
	}
	snap := Snapshot{
		Tick:        r.tick,
		Ego:         r.ego,
		Others:      append([]Vehicle(nil), r.others...),
		Environment: r.scenario.Environment,
	}
	dt := r.scenario.TickDuration
	r.ego = advance(r.ego, dt)
	for i := range r.others {
		r.others[i] = advance(r.others[i], dt)
	}
	r.tick++
	return snap, nil
}

// advance integrates one tick of constant-acceleration motion. A vehicle whose
// velocity would point backwards comes to rest instead.
func advance(v Vehicle, dt float64) Vehicle {
	next := v
	next.Velocity = Vector{X: v.Velocity.X + v.Acceleration.X*dt, Y: v.Velocity.Y + v.Acceleration.Y*dt}
	fwd := v.Pose.Forward()
	if next.Velocity.X*fwd.X+next.Velocity.Y*fwd.Y < 0 {
		next.Velocity = Vector{}
		next.Acceleration = Vector{}
		return next
	}
	next.Pose.Location = v.Pose.Location.Add(v.Velocity, dt).Add(v.Acceleration, 0.5*dt*dt)
	return next
}
