package bayes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterEvidence(t *testing.T) {
	candidates := map[string][]StateProb{
		"Hard":       {{"Yes", 1}, {"No", 0}},
		"HardLast":   {{"Low", 0}, {"Mid", 0}, {"High", 1}},
		"Soft":       {{"Yes", 0.7}, {"No", 0.3}},
		"Empty":      {{"Yes", 0}, {"No", 0}},
		"NoStates":   nil,
		"Overshoot":  {{"Yes", 1}, {"No", 1e-12}},
		"Undershoot": {{"Yes", 1 - 1e-12}, {"No", 0}},
	}

	got := FilterEvidence(candidates)

	assert.Equal(t, map[string]string{"Hard": "Yes", "HardLast": "High"}, got)
}

func TestLookupRuleSet_Unregistered(t *testing.T) {
	_, err := LookupRuleSet("no-such-model")
	assert.ErrorIs(t, err, ErrNoRuleSet)
}

func TestRegisterRuleSet_TwicePanics(t *testing.T) {
	assert.Panics(t, func() {
		RegisterRuleSet(RuleSet{Model: "sprinkler"})
	})
	assert.Contains(t, RegisteredModels(), "sprinkler")
}
