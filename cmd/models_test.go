package cmd

import (
	"bytes"
	"testing"

	"github.com/inference-sim/collision-risk/risk/bayes"
	"github.com/inference-sim/collision-risk/risk/bayes/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListModels_BuiltIns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listModels(&buf, bayes.DefaultStore()))
	out := buf.String()
	for _, m := range []string{rules.ModelLaneFollow, rules.ModelCutInFromLeft, rules.ModelCutInFromRight} {
		assert.Contains(t, out, m)
	}
}
