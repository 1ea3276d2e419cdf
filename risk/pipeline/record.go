package pipeline

import (
	"slices"

	"github.com/inference-sim/collision-risk/risk/trace"
	"github.com/samber/lo"
)

// Record flattens the result into a trace record. Risks are ordered by
// vehicle id and trajectories by name.
func (r TickResult) Record() trace.TickRecord {
	rec := trace.TickRecord{
		Tick:     r.Tick,
		Skipped:  r.Skipped,
		EgoClass: r.EgoClass,
		Roles:    make(map[int]string, len(r.Roles)),
	}
	for id, role := range r.Roles {
		rec.Roles[id] = role.String()
	}

	for _, res := range r.Inference {
		if res.Err != nil {
			rec.Inference = append(rec.Inference, trace.InferenceRecord{
				VehicleID: res.VehicleID,
				Model:     res.Model,
				Role:      res.Role.String(),
				Error:     res.Err.Error(),
			})
			continue
		}
		for _, out := range res.Outputs {
			post := make(map[string]float64, len(out.States))
			for _, s := range out.States {
				post[s.State] = s.Prob
			}
			rec.Inference = append(rec.Inference, trace.InferenceRecord{
				VehicleID: res.VehicleID,
				Model:     res.Model,
				Role:      res.Role.String(),
				Node:      out.Node,
				Posterior: post,
			})
		}
	}

	ids := lo.Keys(r.Risks)
	slices.Sort(ids)
	for _, id := range ids {
		vr := r.Risks[id]
		hs := make([]trace.HypothesisRecord, 0, len(vr.Hypotheses))
		for _, h := range vr.Hypotheses {
			peak, _ := h.Curve.Peak()
			hs = append(hs, trace.HypothesisRecord{Name: h.Name, Prob: h.Prob, PeakRisk: peak})
		}
		rec.Risks = append(rec.Risks, trace.RiskRecord{
			VehicleID:  id,
			Role:       vr.Role.String(),
			Behavior:   vr.Behavior.String(),
			Total:      slices.Clone([]float64(vr.Total)),
			Hypotheses: hs,
		})
	}

	names := lo.Keys(r.Trajectories)
	slices.Sort(names)
	for _, name := range names {
		d := r.Trajectories[name]
		rec.Trajectories = append(rec.Trajectories, trace.TrajectoryRecord{
			Name:  name,
			XMean: d.XMean,
			XStd:  d.XStd,
			YMean: d.YMean,
			YStd:  d.YStd,
		})
	}
	return rec
}
