// Package risk holds what the collision-risk pipeline shares across its
// stages: the run configuration, the seeded per-subsystem RNG, the role to
// model table and the mapping from model outputs to predicted behaviors.
//
// # Reading Guide
//
// A tick flows through the sub-packages in this order:
//   - risk/scene: the abstracted world snapshot, map service and scenario replay
//   - risk/situation: situation classes and the role classifier
//   - risk/bayes, risk/bayes/rules: evidence extraction and maneuver inference
//   - risk/trajectory: Monte Carlo trajectory distributions per behavior
//   - risk/hazard: Eggert collision curves and hypothesis weighting
//   - risk/pipeline: the per-tick orchestration tying the stages together
//
// Diagnostics live beside the pipeline and never feed back into it:
//   - risk/trace: per-run records and summary statistics
//   - risk/record: SQLite persistence of traces
//   - risk/riskplot: PNG export of risk curves
//
// # Determinism
//
// Every random draw comes from a PartitionedRNG subsystem, so one seed and
// one sequence of snapshots always produce the same curves.
package risk
