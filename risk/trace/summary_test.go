package trace

import "testing"

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	s := Summarize(nil)
	if s.TotalTicks != 0 || s.SkippedTicks != 0 || s.MaxRisk != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
	if s.MaxRiskVehicle != -1 {
		t.Errorf("expected no max risk vehicle, got %d", s.MaxRiskVehicle)
	}
	if s.PeakRisk == nil || s.RoleDistribution == nil {
		t.Error("expected initialized maps")
	}
}

func TestSummarize_CountsAndPeaks(t *testing.T) {
	// GIVEN three ticks, one skipped, one failed inference
	rt := NewRunTrace(TraceConfig{Level: TraceLevelRisks})
	rt.RecordTick(TickRecord{
		Tick:  0,
		Roles: map[int]string{1: "ego", 2: "front", 3: "side_left"},
		Inference: []InferenceRecord{
			{VehicleID: 2, Node: "PredictedBraking"},
			{VehicleID: 3, Error: "no waypoint"},
		},
		Risks: []RiskRecord{{VehicleID: 2, Total: []float64{0, 0.3, 0.2}}},
	})
	rt.RecordTick(TickRecord{Tick: 1, Skipped: true})
	rt.RecordTick(TickRecord{
		Tick:  2,
		Roles: map[int]string{1: "ego", 2: "front"},
		Risks: []RiskRecord{{VehicleID: 2, Total: []float64{0.1, 0.8}}},
	})

	// WHEN summarized
	s := Summarize(rt)

	// THEN tick counts, failures and peaks are aggregated
	if s.TotalTicks != 3 {
		t.Errorf("TotalTicks = %d, want 3", s.TotalTicks)
	}
	if s.SkippedTicks != 1 {
		t.Errorf("SkippedTicks = %d, want 1", s.SkippedTicks)
	}
	if s.AssessedVehicles != 2 {
		t.Errorf("AssessedVehicles = %d, want 2", s.AssessedVehicles)
	}
	if s.InferenceFailures != 1 {
		t.Errorf("InferenceFailures = %d, want 1", s.InferenceFailures)
	}
	if s.PeakRisk[2] != 0.8 || s.PeakTick[2] != 2 {
		t.Errorf("peak of vehicle 2 = %f at tick %d, want 0.8 at tick 2", s.PeakRisk[2], s.PeakTick[2])
	}
	if s.MaxRisk != 0.8 || s.MaxRiskVehicle != 2 {
		t.Errorf("max risk = %f (vehicle %d), want 0.8 (vehicle 2)", s.MaxRisk, s.MaxRiskVehicle)
	}

	// AND the ego is not counted as a role
	if s.RoleDistribution["front"] != 2 {
		t.Errorf("front count = %d, want 2", s.RoleDistribution["front"])
	}
	if s.RoleDistribution["side_left"] != 1 {
		t.Errorf("side_left count = %d, want 1", s.RoleDistribution["side_left"])
	}
	if _, ok := s.RoleDistribution["ego"]; ok {
		t.Error("ego should not be in the role distribution")
	}
}
