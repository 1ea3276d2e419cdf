// Package trace provides per-run recording of pipeline ticks for offline
// analysis. This package has no dependencies on risk/ or its other
// sub-packages; it stores pure data types.
package trace

// InferenceRecord captures the posterior of one output node for one vehicle,
// or the failure that prevented it.
type InferenceRecord struct {
	VehicleID int
	Model     string
	Role      string
	Node      string             // empty when Error is set
	Posterior map[string]float64 // state -> probability
	Error     string
}

// HypothesisRecord captures one weighted behavior alternative.
type HypothesisRecord struct {
	Name     string
	Prob     float64
	PeakRisk float64
}

// RiskRecord captures the assessed risk of one vehicle.
type RiskRecord struct {
	VehicleID  int
	Role       string
	Behavior   string
	Total      []float64
	Hypotheses []HypothesisRecord
}

// TrajectoryRecord captures one sampled position distribution.
type TrajectoryRecord struct {
	Name  string // "ego" or "vehicle_<id>/<hypothesis>"
	XMean []float64
	XStd  []float64
	YMean []float64
	YStd  []float64
}

// TickRecord captures everything one pipeline tick produced.
type TickRecord struct {
	Tick         int
	Skipped      bool
	EgoClass     string
	Roles        map[int]string // vehicle id -> role name
	Inference    []InferenceRecord
	Risks        []RiskRecord       // sorted by vehicle id
	Trajectories []TrajectoryRecord // nil unless the trace level is full
}
