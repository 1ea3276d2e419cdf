// Package pipeline runs one collision-risk assessment per world tick:
// classify the vehicles around the ego, infer their maneuvers, sample the
// trajectories of every likely behavior and weight the resulting collision
// curves.
//
// A Pipeline owns its inference worker pool from New until Close. Tick is
// synchronous and must be called from a single goroutine; the results it
// returns are never retained by the pipeline.
package pipeline

import (
	"context"
	"fmt"

	"github.com/inference-sim/collision-risk/risk"
	"github.com/inference-sim/collision-risk/risk/bayes"
	"github.com/inference-sim/collision-risk/risk/bayes/rules"
	"github.com/inference-sim/collision-risk/risk/hazard"
	"github.com/inference-sim/collision-risk/risk/scene"
	"github.com/inference-sim/collision-risk/risk/situation"
	"github.com/inference-sim/collision-risk/risk/trajectory"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// EgoTrajectory is the Trajectories key of the ego's distribution.
const EgoTrajectory = risk.SubsystemEgo

// VehicleRisk is the assessed risk of one vehicle.
type VehicleRisk struct {
	VehicleID int
	Role      situation.RoleTag
	Model     string
	Behavior  risk.Behavior
	// Total is the probability-weighted collision curve.
	Total hazard.Curve
	// Hypotheses are the weighted alternatives, including zero-risk ones.
	Hypotheses []hazard.Hypothesis
}

// TickResult is everything one tick produced.
type TickResult struct {
	Tick     int
	Skipped  bool
	EgoClass string
	Roles    map[int]situation.RoleTag
	// Risks is keyed by vehicle id. It is empty, not nil, for processed
	// ticks without relevant vehicles.
	Risks     map[int]VehicleRisk
	Inference []bayes.Result
	// Trajectories is keyed by EgoTrajectory or risk.SubsystemHypothesis.
	Trajectories map[string]trajectory.Distribution
}

// Pipeline is the per-tick orchestrator.
type Pipeline struct {
	cfg        risk.Config
	roads      scene.Map
	classifier *situation.Classifier
	pool       *bayes.Pool
	engine     *bayes.Engine
	sampler    *trajectory.Sampler
	rng        *risk.PartitionedRNG
	roleModels map[situation.RoleTag]string
	cycle      int
}

// New validates cfg, checks that every configured model can be loaded and
// has evidence rules, and starts the inference pool. A nil store selects
// the built-in models.
func New(cfg risk.Config, classes []situation.Class, roads scene.Map, store *bayes.Store) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if store == nil {
		store = bayes.DefaultStore()
	}
	roleModels, err := risk.RoleModels(cfg.Inference.RoleModels)
	if err != nil {
		return nil, err
	}
	models := lo.Uniq(lo.Values(roleModels))
	for _, m := range models {
		if _, err := store.Load(m); err != nil {
			return nil, err
		}
		if _, err := bayes.LookupRuleSet(m); err != nil {
			return nil, err
		}
	}
	registry, err := situation.NewRegistry(classes)
	if err != nil {
		return nil, err
	}
	sampler, err := trajectory.NewSampler(cfg.Prediction, cfg.Trajectory)
	if err != nil {
		return nil, err
	}
	pool, err := bayes.NewPool(cfg.Inference.Workers)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Pipeline ready: %d classes, %d inference workers, %d models, seed %d",
		len(classes), pool.Size(), len(models), cfg.Seed)
	return &Pipeline{
		cfg:        cfg,
		roads:      roads,
		classifier: situation.NewClassifier(registry, roads, cfg.Sensing),
		pool:       pool,
		engine:     bayes.NewEngine(store, pool, cfg.Inference.InteractionHops),
		sampler:    sampler,
		rng:        risk.NewPartitionedRNG(risk.NewSimulationKey(cfg.Seed)),
		roleModels: roleModels,
	}, nil
}

// Close stops the inference pool. The pipeline must not be used afterwards.
func (p *Pipeline) Close() {
	p.pool.Close()
	logrus.Infof("Pipeline closed after %d ticks", p.cycle)
}

// Classifier exposes the role classifier and its class registry.
func (p *Pipeline) Classifier() *situation.Classifier {
	return p.classifier
}

// Tick assesses one snapshot. Only every skip_cycle_count-th call does any
// work; the others return a Skipped result. Per-vehicle failures are
// reported in the result; the error is set only when ctx ends or the ego
// pose is unusable.
func (p *Pipeline) Tick(ctx context.Context, snap scene.Snapshot) (TickResult, error) {
	cycle := p.cycle
	p.cycle++
	if cycle%p.cfg.Pipeline.SkipCycleCount != 0 {
		return TickResult{Tick: snap.Tick, Skipped: true}, nil
	}

	assign := p.classifier.Assign(snap)
	res := TickResult{
		Tick:         snap.Tick,
		EgoClass:     assign.EgoClass,
		Roles:        assign.Roles,
		Risks:        map[int]VehicleRisk{},
		Trajectories: map[string]trajectory.Distribution{},
	}

	tasks, failed := p.tasks(snap, assign)
	res.Inference = failed
	if len(tasks) == 0 {
		logrus.Debugf("tick %d: no vehicles to assess", snap.Tick)
		return res, nil
	}

	results, err := p.engine.Infer(ctx, snap.Ego.Location(), tasks)
	if err != nil {
		return res, fmt.Errorf("tick %d: %w", snap.Tick, err)
	}
	res.Inference = append(res.Inference, results...)

	frame, err := scene.NewEgoFrame(snap.Ego.Pose)
	if err != nil {
		return res, fmt.Errorf("tick %d: %w", snap.Tick, err)
	}
	a := &assessment{
		p:     p,
		snap:  snap,
		frame: frame,
		out:   &res,
	}
	a.sampleEgo()

	for _, r := range results {
		if r.Err != nil {
			logrus.Warnf("tick %d: inference for vehicle %d (%s) failed: %v", snap.Tick, r.VehicleID, r.Model, r.Err)
			continue
		}
		v, ok := snap.Other(r.VehicleID)
		if !ok {
			logrus.Warnf("tick %d: vehicle %d not in snapshot, skipping", snap.Tick, r.VehicleID)
			continue
		}
		for _, out := range r.Outputs {
			vr, ok, err := a.assess(v, r, out)
			if err != nil {
				logrus.Warnf("tick %d: risk of vehicle %d: %v", snap.Tick, v.ID, err)
				continue
			}
			if ok {
				res.Risks[v.ID] = vr
			}
		}
	}
	logrus.Debugf("tick %d: %d tasks, %d risks", snap.Tick, len(tasks), len(res.Risks))
	return res, nil
}

// tasks builds one inference task per relevant vehicle whose role has a
// model. Vehicles whose features cannot be extracted come back as failed
// results.
func (p *Pipeline) tasks(snap scene.Snapshot, assign situation.Assignment) ([]bayes.Task, []bayes.Result) {
	var tasks []bayes.Task
	var failed []bayes.Result
	for _, id := range assign.Relevant() {
		role := assign.Role(id)
		model, ok := p.roleModels[role]
		if !ok {
			continue
		}
		v, ok := snap.Other(id)
		if !ok {
			continue
		}
		features, err := rules.Extract(model, rules.Input{
			Snapshot:             snap,
			Map:                  p.roads,
			Vehicle:              v,
			LeadLateralTolerance: p.cfg.Pipeline.LeadLateralTolerance,
		})
		if err != nil {
			logrus.Warnf("tick %d: features of vehicle %d for %s: %v", snap.Tick, id, model, err)
			failed = append(failed, bayes.Result{VehicleID: id, Model: model, Role: role, Err: err})
			continue
		}
		tasks = append(tasks, bayes.Task{
			VehicleID: id,
			Role:      role,
			Model:     model,
			Location:  v.Location(),
			Features:  features,
		})
	}
	return tasks, failed
}
