package bayes

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStore_LoadsBuiltinModels(t *testing.T) {
	s := DefaultStore()

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"1LaneFollow_Simple", "CutInFromLeft", "CutInFromRight"}, names)

	tests := []struct {
		model  string
		output string
		states []string
	}{
		{"1LaneFollow_Simple", "Predicted_FV_Braking_Behavior", []string{"Emergency", "TargetBrake", "FollowVehicle", "NoBrake"}},
		{"CutInFromLeft", "Predicted_Left_SV_Cut_In_Behavior", []string{"CutIn", "NoCutIn"}},
		{"CutInFromRight", "Predicted_Right_SV_Cut_In_Behavior", []string{"CutIn", "NoCutIn"}},
	}
	for _, tc := range tests {
		t.Run(tc.model, func(t *testing.T) {
			n, err := s.Load(tc.model)
			require.NoError(t, err)
			node, ok := n.Node(tc.output)
			require.True(t, ok)
			assert.Equal(t, tc.states, node.States)

			probs, err := Query(n, tc.output, nil)
			require.NoError(t, err)
			sum := 0.0
			for _, p := range probs {
				sum += p
			}
			assert.InDelta(t, 1, sum, 1e-9)
		})
	}
}

func TestStore_Load_CachesDefinition(t *testing.T) {
	s := NewStore(fstest.MapFS{"sprinkler.yaml": {Data: []byte(sprinklerYAML)}})

	first, err := s.Load("sprinkler")
	require.NoError(t, err)
	second, err := s.Load("sprinkler")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestStore_Load_Errors(t *testing.T) {
	s := NewStore(fstest.MapFS{
		"renamed.yaml": {Data: []byte(sprinklerYAML)},
		"broken.yaml":  {Data: []byte("name: broken\nnodes:\n  - name: A\n    states: [x, y]\n    cpt: [[0.5, 0.4]]\n")},
	})

	_, err := s.Load("missing")
	assert.ErrorIs(t, err, ErrUnknownModel)

	_, err = s.Load("renamed")
	assert.ErrorContains(t, err, "declares network")

	_, err = s.Load("broken")
	assert.ErrorContains(t, err, "sum to 1")
}
