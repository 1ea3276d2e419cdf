package risk

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible run.
// Two runs with the same SimulationKey, configuration and snapshots MUST
// produce identical risk curves.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemEgo is the RNG subsystem for the ego trajectory.
	// Uses the master seed directly.
	SubsystemEgo = "ego"
)

// SubsystemHypothesis returns the subsystem name for one behavior hypothesis
// of vehicle id.
func SubsystemHypothesis(id int, hypothesis string) string {
	return fmt.Sprintf("vehicle_%d/%s", id, hypothesis)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated random sources per
// subsystem.
//
// Derivation formula:
//   - For SubsystemEgo: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// The stream is the PCG generator seeded with (derivedSeed, fnv1a64(name)).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.PCG
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.PCG),
	}
}

// ForSubsystem returns the deterministically-seeded source for the named
// subsystem. The same name always returns the same source (cached), so draws
// continue where the previous caller stopped. Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) rand.Source {
	if src, ok := p.subsystems[name]; ok {
		return src
	}

	h := fnv1a64(name)
	derivedSeed := int64(p.key)
	if name != SubsystemEgo {
		derivedSeed ^= h
	}

	src := rand.NewPCG(uint64(derivedSeed), uint64(h))
	p.subsystems[name] = src
	return src
}

// Reset drops every cached source. The next ForSubsystem call for a name
// starts its stream from the beginning again.
func (p *PartitionedRNG) Reset() {
	clear(p.subsystems)
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
