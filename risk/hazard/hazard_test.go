package hazard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEggert_Risk(t *testing.T) {
	const n, dt = 21, 0.2
	ego := Position{Mean: constant(n, 0), Std: constant(n, 0)}

	t.Run("far ahead is safe", func(t *testing.T) {
		curve, err := DefaultEggert().Risk(ego, Position{Mean: constant(n, 50), Std: constant(n, 0)}, dt)
		require.NoError(t, err)
		for _, p := range curve {
			assert.Zero(t, p)
		}
	})

	t.Run("overlap decays with survival", func(t *testing.T) {
		// GIVEN the other position certainly behind the ego
		other := Position{Mean: constant(n, -1), Std: constant(n, 0)}

		// WHEN the risk is computed
		curve, err := DefaultEggert().Risk(ego, other, dt)
		require.NoError(t, err)

		// THEN the rate is 1 and the curve is the survival exp(-t)
		require.Len(t, curve, n)
		assert.InDelta(t, 1, curve[0], 1e-12)
		assert.InDelta(t, math.Exp(-0.2), curve[1], 1e-9)
		assert.InDelta(t, math.Exp(-1), curve[5], 1e-9)
		assert.InDelta(t, math.Exp(-4), curve[20], 1e-9)
	})

	t.Run("equal means are half critical", func(t *testing.T) {
		other := Position{Mean: constant(n, 0), Std: constant(n, 1)}
		curve, err := DefaultEggert().Risk(ego, other, dt)
		require.NoError(t, err)
		want := (1 - math.Exp(-0.5)) / (1 - math.Exp(-1))
		assert.InDelta(t, want, curve[0], 1e-12)
	})
}

func TestEggert_Risk_Bounds(t *testing.T) {
	// GIVEN a closing gap with growing uncertainty
	const n = 21
	ego := Position{Mean: make([]float64, n), Std: make([]float64, n)}
	other := Position{Mean: make([]float64, n), Std: make([]float64, n)}
	for i := 0; i < n; i++ {
		ego.Mean[i] = 2 * float64(i)
		ego.Std[i] = 0.2
		other.Mean[i] = 20 + 0.5*float64(i)
		other.Std[i] = 0.1 * float64(i)
	}

	curve, err := DefaultEggert().Risk(ego, other, 0.2)
	require.NoError(t, err)

	// THEN every value is a probability and the risk rises once the gap closes
	for i, p := range curve {
		assert.GreaterOrEqual(t, p, 0.0, "step %d", i)
		assert.LessOrEqual(t, p, 1.0, "step %d", i)
	}
	assert.Greater(t, curve[20], curve[0])
}

func TestEggert_LengthMismatch(t *testing.T) {
	_, err := DefaultEggert().Risk(Position{Mean: []float64{0}, Std: []float64{0}}, Position{}, 0.2)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	curve, err := DefaultEggert().Risk(Position{}, Position{}, 0.2)
	require.NoError(t, err)
	assert.Empty(t, curve)
}

func TestEggert_Validate(t *testing.T) {
	assert.NoError(t, DefaultEggert().Validate())
	assert.ErrorContains(t, Eggert{Beta: 0, RateMax: 1}.Validate(), "eggert.beta")
	assert.ErrorContains(t, Eggert{Beta: 1, RateMax: -1}.Validate(), "eggert.rate_max")
}

func TestWeighted(t *testing.T) {
	a := Curve{0.1, 0.2, 0.3}
	b := Curve{0.5, 0.5, 0.5}

	tests := []struct {
		name string
		hs   []Hypothesis
		want Curve
	}{
		{"one hot returns the curve", []Hypothesis{{"a", 1, a}, {"b", 0, b}}, a},
		{"mixture", []Hypothesis{{"a", 0.5, a}, {"b", 0.5, b}}, Curve{0.3, 0.35, 0.4}},
		{"no hypotheses", nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Weighted(tc.hs)
			require.NoError(t, err)
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				assert.InDelta(t, tc.want[i], got[i], 1e-15)
			}
		})
	}

	_, err := Weighted([]Hypothesis{{"a", 1, a}, {"short", 1, Curve{1}}})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestWeighted_OneHotIsExact(t *testing.T) {
	a := Curve{0.123456789, 0.987654321}
	got, err := Weighted([]Hypothesis{{"a", 1, a}, {"b", 0, Curve{0.3, 0.7}}})
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestProductScalePeak(t *testing.T) {
	p, err := Product(Curve{0.5, 1}, Curve{0.5, 0.2})
	require.NoError(t, err)
	assert.Equal(t, Curve{0.25, 0.2}, p)

	_, err = Product(Curve{1}, Curve{})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	assert.Equal(t, Curve{0.5, 0.25}, Curve{1, 0.5}.Scale(0.5))

	v, i := Curve{0.1, 0.7, 0.3}.Peak()
	assert.Equal(t, 0.7, v)
	assert.Equal(t, 1, i)
	_, i = Curve(nil).Peak()
	assert.Equal(t, -1, i)
}
