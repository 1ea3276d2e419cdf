package bayes

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownModel is returned when no definition exists for a model name.
	ErrUnknownModel = errors.New("unknown model")
	// ErrUnknownNode is returned when a node has no evidence rule or is not
	// part of the network.
	ErrUnknownNode = errors.New("unknown node")
	// ErrNoRuleSet is returned when a model has no registered evidence rules.
	ErrNoRuleSet = errors.New("no evidence rules registered")
)

// evidenceEpsilon is the tolerance for treating a distribution as hard
// evidence.
const evidenceEpsilon = 2.220446049250313e-16

// StateProb pairs a state name with its probability.
type StateProb struct {
	State string
	Prob  float64
}

// NodeEvidence is what a rule reports for one node: whether the node is
// queried, and the observed distribution over its states. All-zero outcomes
// mean "not observed".
type NodeEvidence struct {
	Output   bool
	Outcomes []StateProb
}

// EvidenceRule computes the evidence for one node from a model's feature
// value.
type EvidenceRule func(features any) (NodeEvidence, error)

// RuleSet binds the evidence rules of one model, keyed by node name.
type RuleSet struct {
	Model string
	Rules map[string]EvidenceRule
}

var (
	ruleSetsMu sync.RWMutex
	ruleSets   = map[string]RuleSet{}
)

// RegisterRuleSet makes a model's evidence rules available to the engine.
// Called from init() of the rule packages; registering a model twice panics.
func RegisterRuleSet(rs RuleSet) {
	ruleSetsMu.Lock()
	defer ruleSetsMu.Unlock()
	if _, dup := ruleSets[rs.Model]; dup {
		panic(fmt.Sprintf("bayes: rule set for %s registered twice", rs.Model))
	}
	ruleSets[rs.Model] = rs
}

// LookupRuleSet returns the rules registered for a model.
func LookupRuleSet(model string) (RuleSet, error) {
	ruleSetsMu.RLock()
	defer ruleSetsMu.RUnlock()
	rs, ok := ruleSets[model]
	if !ok {
		return RuleSet{}, fmt.Errorf("%w: %s", ErrNoRuleSet, model)
	}
	return rs, nil
}

// RegisteredModels lists the models with rules, sorted.
func RegisteredModels() []string {
	ruleSetsMu.RLock()
	defer ruleSetsMu.RUnlock()
	names := make([]string, 0, len(ruleSets))
	for name := range ruleSets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FilterEvidence keeps the nodes whose outcomes form a hard observation: the
// probabilities sum to 1 and the largest is 1, both within machine epsilon.
// The kept nodes map to the name of their observed state. Soft or empty
// distributions are dropped.
func FilterEvidence(candidates map[string][]StateProb) map[string]string {
	names := make([]string, 0, len(candidates))
	for name := range candidates {
		names = append(names, name)
	}
	sort.Strings(names)

	out := map[string]string{}
	for _, name := range names {
		outcomes := candidates[name]
		if len(outcomes) == 0 {
			continue
		}
		sum, best := 0.0, 0
		for i, o := range outcomes {
			sum += o.Prob
			if o.Prob > outcomes[best].Prob {
				best = i
			}
		}
		if sum == 0 {
			continue
		}
		if math.Abs(sum-1) >= evidenceEpsilon || math.Abs(outcomes[best].Prob-1) >= evidenceEpsilon {
			logrus.Debugf("dropping soft evidence for %s: %v", name, outcomes)
			continue
		}
		out[name] = outcomes[best].State
	}
	return out
}
