package trace

// TraceSummary aggregates statistics from a RunTrace.
type TraceSummary struct {
	TotalTicks        int
	SkippedTicks      int
	AssessedVehicles  int // vehicle risks over all ticks
	InferenceFailures int
	MaxRisk           float64
	MaxRiskVehicle    int
	PeakRisk          map[int]float64 // vehicle id -> highest risk seen
	PeakTick          map[int]int     // vehicle id -> tick of PeakRisk
	RoleDistribution  map[string]int  // role name -> count of tagged vehicles, ego excluded
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *TraceSummary {
	summary := &TraceSummary{
		MaxRiskVehicle:   -1,
		PeakRisk:         make(map[int]float64),
		PeakTick:         make(map[int]int),
		RoleDistribution: make(map[string]int),
	}
	if rt == nil {
		return summary
	}

	summary.TotalTicks = len(rt.Ticks)
	for _, tick := range rt.Ticks {
		if tick.Skipped {
			summary.SkippedTicks++
			continue
		}
		for _, role := range tick.Roles {
			if role != "ego" {
				summary.RoleDistribution[role]++
			}
		}
		for _, inf := range tick.Inference {
			if inf.Error != "" {
				summary.InferenceFailures++
			}
		}
		for _, r := range tick.Risks {
			summary.AssessedVehicles++
			peak := 0.0
			for _, p := range r.Total {
				if p > peak {
					peak = p
				}
			}
			if prev, seen := summary.PeakRisk[r.VehicleID]; !seen || peak > prev {
				summary.PeakRisk[r.VehicleID] = peak
				summary.PeakTick[r.VehicleID] = tick.Tick
			}
			if peak > summary.MaxRisk {
				summary.MaxRisk = peak
				summary.MaxRiskVehicle = r.VehicleID
			}
		}
	}

	return summary
}
