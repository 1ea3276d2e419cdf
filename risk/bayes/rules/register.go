package rules

import "github.com/inference-sim/collision-risk/risk/bayes"

func init() {
	bayes.RegisterRuleSet(laneFollowRules())
	bayes.RegisterRuleSet(cutInRules(ModelCutInFromLeft, NodePredictedLeftCutIn))
	bayes.RegisterRuleSet(cutInRules(ModelCutInFromRight, NodePredictedRightCutIn))
}

func unobservedEvidence(states ...string) bayes.NodeEvidence {
	out := make([]bayes.StateProb, len(states))
	for i, s := range states {
		out[i] = bayes.StateProb{State: s}
	}
	return bayes.NodeEvidence{Outcomes: out}
}

// unobserved is the rule of a latent node: no evidence, not queried.
func unobserved(states ...string) bayes.EvidenceRule {
	ev := unobservedEvidence(states...)
	return func(any) (bayes.NodeEvidence, error) {
		return ev, nil
	}
}

// output is the rule of a queried node without evidence.
func output(states ...string) bayes.EvidenceRule {
	ev := unobservedEvidence(states...)
	ev.Output = true
	return func(any) (bayes.NodeEvidence, error) {
		return ev, nil
	}
}

// observed puts all probability mass on one state.
func observed(states []string, state string) bayes.NodeEvidence {
	ev := unobservedEvidence(states...)
	for i := range ev.Outcomes {
		if ev.Outcomes[i].State == state {
			ev.Outcomes[i].Prob = 1
		}
	}
	return ev
}

func yesNo(b bool) bayes.NodeEvidence {
	if b {
		return observed([]string{"Yes", "No"}, "Yes")
	}
	return observed([]string{"Yes", "No"}, "No")
}
