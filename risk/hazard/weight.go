package hazard

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Hypothesis is one behavior alternative with its probability and the
// collision curve it implies.
type Hypothesis struct {
	Name  string
	Prob  float64
	Curve Curve
}

// Weighted returns the probability-weighted sum of the hypothesis curves.
// No hypotheses yield a nil curve.
func Weighted(hs []Hypothesis) (Curve, error) {
	if len(hs) == 0 {
		return nil, nil
	}
	total := make(Curve, len(hs[0].Curve))
	for _, h := range hs {
		if len(h.Curve) != len(total) {
			return nil, fmt.Errorf("weighting %q: %w: %d, want %d", h.Name, ErrLengthMismatch, len(h.Curve), len(total))
		}
		floats.AddScaled(total, h.Prob, h.Curve)
	}
	return total, nil
}

// Product multiplies two curves step by step.
func Product(a, b Curve) (Curve, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("product: %w: %d and %d", ErrLengthMismatch, len(a), len(b))
	}
	out := make(Curve, len(a))
	floats.MulTo(out, a, b)
	return out, nil
}

// Scale returns the curve multiplied by p.
func (c Curve) Scale(p float64) Curve {
	out := make(Curve, len(c))
	floats.AddScaled(out, p, c)
	return out
}

// Peak returns the highest probability and its step, or (0, -1) for an
// empty curve.
func (c Curve) Peak() (float64, int) {
	if len(c) == 0 {
		return 0, -1
	}
	i := floats.MaxIdx(c)
	return c[i], i
}
